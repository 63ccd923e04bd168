package memory

import (
	"context"
	"sort"
	"sync"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// CompetitionStore is an in-memory implementation of storage.CompetitionStore.
type CompetitionStore struct {
	mu           sync.RWMutex
	competitions map[string]*domain.Competition
	participants []*domain.Participant
	metrics      map[string]float64
}

// NewCompetitionStore creates a new in-memory competition store.
func NewCompetitionStore() *CompetitionStore {
	return &CompetitionStore{
		competitions: make(map[string]*domain.Competition),
		metrics:      make(map[string]float64),
	}
}

// Create adds a competition. Returns ErrDuplicateKey if id exists.
func (s *CompetitionStore) Create(_ context.Context, c *domain.Competition) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.competitions[c.ID]; exists {
		return storage.ErrDuplicateKey
	}
	cCopy := *c
	s.competitions[c.ID] = &cCopy
	return nil
}

// AddParticipant enters an address into a competition.
func (s *CompetitionStore) AddParticipant(_ context.Context, p *domain.Participant) error {
	if p == nil || p.CompetitionID == "" || p.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.competitions[p.CompetitionID]; !exists {
		return storage.ErrNotFound
	}
	for _, existing := range s.participants {
		if existing.CompetitionID == p.CompetitionID && existing.Address == p.Address {
			return storage.ErrDuplicateKey
		}
	}
	pCopy := *p
	s.participants = append(s.participants, &pCopy)
	return nil
}

// ListByAddress returns the latest entries of address, newest first.
func (s *CompetitionStore) ListByAddress(_ context.Context, address string, limit int) ([]*domain.CompetitionEntry, error) {
	s.mu.RLock()
	var result []*domain.CompetitionEntry
	for _, p := range s.participants {
		if p.Address != address {
			continue
		}
		c := s.competitions[p.CompetitionID]
		result = append(result, &domain.CompetitionEntry{
			Competition: *c,
			Participant: *p,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Participant.JoinedAt > result[j].Participant.JoinedAt
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// IncrementMetric adds delta to a named metric.
func (s *CompetitionStore) IncrementMetric(_ context.Context, name string, delta float64) error {
	if name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics[name] += delta
	return nil
}

// Metrics returns a copy of all named metrics.
func (s *CompetitionStore) Metrics(_ context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]float64, len(s.metrics))
	for k, v := range s.metrics {
		result[k] = v
	}
	return result, nil
}

var _ storage.CompetitionStore = (*CompetitionStore)(nil)
