package kv

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/storage"
)

// WaitlistStore keeps the offline waitlist as a JSON array under
// battle_arena_waitlist. Duplicate detection is exact email equality.
type WaitlistStore struct {
	mu sync.Mutex
	kv kvstore.Store
}

// NewWaitlistStore creates a new WaitlistStore.
func NewWaitlistStore(kv kvstore.Store) *WaitlistStore {
	return &WaitlistStore{kv: kv}
}

var _ storage.WaitlistStore = (*WaitlistStore)(nil)

// Insert appends an entry. Returns ErrDuplicateKey if the email exists.
func (s *WaitlistStore) Insert(_ context.Context, e *domain.WaitlistEntry) error {
	if e == nil || e.Email == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range entries {
		if existing.Email == e.Email {
			return storage.ErrDuplicateKey
		}
	}

	entries = append(entries, *e)
	if err := kvstore.SetJSON(s.kv, kvstore.KeyWaitlist, entries); err != nil {
		return fmt.Errorf("save waitlist: %w", err)
	}
	return nil
}

// GetByEmail retrieves an entry by exact email. Returns ErrNotFound if not exists.
func (s *WaitlistStore) GetByEmail(_ context.Context, email string) (*domain.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Email == email {
			e := entries[i]
			return &e, nil
		}
	}
	return nil, storage.ErrNotFound
}

// List returns all entries ordered by timestamp DESC.
func (s *WaitlistStore) List(_ context.Context) ([]*domain.WaitlistEntry, error) {
	s.mu.Lock()
	entries, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := make([]*domain.WaitlistEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	return result, nil
}

func (s *WaitlistStore) load() ([]domain.WaitlistEntry, error) {
	var entries []domain.WaitlistEntry
	if _, err := kvstore.GetJSON(s.kv, kvstore.KeyWaitlist, &entries); err != nil {
		return nil, fmt.Errorf("load waitlist: %w", err)
	}
	return entries, nil
}
