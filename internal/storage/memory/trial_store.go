package memory

import (
	"context"
	"sort"
	"sync"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// TrialStore is an in-memory implementation of storage.TrialStore.
type TrialStore struct {
	mu      sync.RWMutex
	records map[string]*domain.TrialRecord // keyed by identity
}

// NewTrialStore creates a new in-memory trial store.
func NewTrialStore() *TrialStore {
	return &TrialStore{
		records: make(map[string]*domain.TrialRecord),
	}
}

// Get retrieves the record for identity. Returns ErrNotFound if absent.
func (s *TrialStore) Get(_ context.Context, identity string) (*domain.TrialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[identity]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyTrialRecord(rec), nil
}

// Put creates or replaces the record for identity.
func (s *TrialStore) Put(_ context.Context, identity string, rec *domain.TrialRecord) error {
	if identity == "" || rec == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[identity] = copyTrialRecord(rec)
	return nil
}

// Delete removes the record for identity.
func (s *TrialStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, identity)
	return nil
}

// Identities lists stored identities in sorted order.
func (s *TrialStore) Identities(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copyTrialRecord(rec *domain.TrialRecord) *domain.TrialRecord {
	c := *rec
	if rec.Games != nil {
		c.Games = append([]domain.GameUse(nil), rec.Games...)
	}
	return &c
}

var _ storage.TrialStore = (*TrialStore)(nil)
