package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// WaitlistStore is an in-memory implementation of storage.WaitlistStore.
// Emails are unique case-insensitively, matching the postgres store.
type WaitlistStore struct {
	mu      sync.RWMutex
	entries []*domain.WaitlistEntry
	byEmail map[string]*domain.WaitlistEntry // keyed by lowercased email
}

// NewWaitlistStore creates a new in-memory waitlist store.
func NewWaitlistStore() *WaitlistStore {
	return &WaitlistStore{
		byEmail: make(map[string]*domain.WaitlistEntry),
	}
}

// Insert adds an entry. Returns ErrDuplicateKey if the email exists.
func (s *WaitlistStore) Insert(_ context.Context, e *domain.WaitlistEntry) error {
	if e == nil || e.Email == "" {
		return storage.ErrInvalidInput
	}

	key := strings.ToLower(e.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return storage.ErrDuplicateKey
	}

	entryCopy := *e
	s.entries = append(s.entries, &entryCopy)
	s.byEmail[key] = &entryCopy
	return nil
}

// GetByEmail retrieves an entry by email. Returns ErrNotFound if not exists.
func (s *WaitlistStore) GetByEmail(_ context.Context, email string) (*domain.WaitlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	entryCopy := *e
	return &entryCopy, nil
}

// List returns all entries ordered by timestamp DESC.
func (s *WaitlistStore) List(_ context.Context) ([]*domain.WaitlistEntry, error) {
	s.mu.RLock()
	result := make([]*domain.WaitlistEntry, len(s.entries))
	for i, e := range s.entries {
		entryCopy := *e
		result[i] = &entryCopy
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	return result, nil
}

var _ storage.WaitlistStore = (*WaitlistStore)(nil)
