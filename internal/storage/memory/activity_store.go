package memory

import (
	"context"
	"sort"
	"sync"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu     sync.RWMutex
	events []*domain.ActivityEvent
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

// Insert appends an event.
func (s *ActivityStore) Insert(_ context.Context, e *domain.ActivityEvent) error {
	if e == nil || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eCopy := *e
	s.events = append(s.events, &eCopy)
	return nil
}

// Recent returns up to limit events ordered by occurred_at DESC.
func (s *ActivityStore) Recent(_ context.Context, limit int) ([]*domain.ActivityEvent, error) {
	s.mu.RLock()
	result := make([]*domain.ActivityEvent, len(s.events))
	for i, e := range s.events {
		eCopy := *e
		result[i] = &eCopy
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt > result[j].OccurredAt
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.ActivityStore = (*ActivityStore)(nil)
