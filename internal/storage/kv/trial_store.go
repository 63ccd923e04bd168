// Package kv implements stores on top of a kvstore.Store, using the same keys
// the web client keeps in local storage.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/storage"
)

// TrialStore implements storage.TrialStore under nova_trials_<identity> keys.
type TrialStore struct {
	kv  kvstore.Store
	now func() time.Time

	legacyMu sync.Mutex
}

// NewTrialStore creates a new TrialStore.
func NewTrialStore(kv kvstore.Store) *TrialStore {
	return &TrialStore{kv: kv, now: time.Now}
}

var _ storage.TrialStore = (*TrialStore)(nil)

// Get retrieves the record for identity. Returns ErrNotFound if absent.
//
// A trials_left counter left by older clients is adopted by the first
// identity read without a record of its own, then removed.
func (s *TrialStore) Get(_ context.Context, identity string) (*domain.TrialRecord, error) {
	var rec domain.TrialRecord
	ok, err := kvstore.GetJSON(s.kv, kvstore.TrialKey(identity), &rec)
	if err != nil {
		return nil, fmt.Errorf("get trial record: %w", err)
	}
	if !ok {
		return s.adoptLegacy(identity)
	}
	return &rec, nil
}

func (s *TrialStore) adoptLegacy(identity string) (*domain.TrialRecord, error) {
	s.legacyMu.Lock()
	defer s.legacyMu.Unlock()

	raw, ok, err := s.kv.Get(kvstore.KeyLegacyTrialsLeft)
	if err != nil {
		return nil, fmt.Errorf("get legacy trial counter: %w", err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}

	left, parsed := parseTrialsLeft(raw)
	if !parsed || left >= domain.MaxTrials {
		if err := s.kv.Delete(kvstore.KeyLegacyTrialsLeft); err != nil {
			return nil, fmt.Errorf("delete legacy trial counter: %w", err)
		}
		return nil, storage.ErrNotFound
	}
	if left < 0 {
		left = 0
	}

	// the legacy counter never expired; the window starts now
	rec := &domain.TrialRecord{
		Count:    domain.MaxTrials - left,
		LastUsed: s.now().UnixMilli(),
	}
	if err := kvstore.SetJSON(s.kv, kvstore.TrialKey(identity), rec); err != nil {
		return nil, fmt.Errorf("put adopted trial record: %w", err)
	}
	if err := s.kv.Delete(kvstore.KeyLegacyTrialsLeft); err != nil {
		return nil, fmt.Errorf("delete legacy trial counter: %w", err)
	}
	return rec, nil
}

// parseTrialsLeft accepts a JSON number or a numeric string.
func parseTrialsLeft(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(str))
	return n, err == nil
}

// Put creates or replaces the record for identity.
func (s *TrialStore) Put(_ context.Context, identity string, rec *domain.TrialRecord) error {
	if identity == "" || rec == nil {
		return storage.ErrInvalidInput
	}
	if err := kvstore.SetJSON(s.kv, kvstore.TrialKey(identity), rec); err != nil {
		return fmt.Errorf("put trial record: %w", err)
	}
	return nil
}

// Delete removes the record for identity, and an unadopted legacy
// counter so a reset identity starts fresh.
func (s *TrialStore) Delete(_ context.Context, identity string) error {
	if err := s.kv.Delete(kvstore.TrialKey(identity)); err != nil {
		return fmt.Errorf("delete trial record: %w", err)
	}
	s.legacyMu.Lock()
	defer s.legacyMu.Unlock()
	if err := s.kv.Delete(kvstore.KeyLegacyTrialsLeft); err != nil {
		return fmt.Errorf("delete legacy trial counter: %w", err)
	}
	return nil
}

// Identities lists every identity with a stored record.
func (s *TrialStore) Identities(_ context.Context) ([]string, error) {
	keys, err := s.kv.Keys(kvstore.TrialKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list trial keys: %w", err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, kvstore.TrialKeyPrefix)
	}
	return ids, nil
}
