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

// CompetitionStore keeps demo competitions, their players and the demo
// metrics as one JSON document under demo_competitions.
type CompetitionStore struct {
	mu sync.Mutex
	kv kvstore.Store
}

type competitionDoc struct {
	Competitions []demoCompetition `json:"competitions"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

type demoCompetition struct {
	domain.Competition
	Players []domain.Participant `json:"players"`
}

// NewCompetitionStore creates a new CompetitionStore.
func NewCompetitionStore(kv kvstore.Store) *CompetitionStore {
	return &CompetitionStore{kv: kv}
}

var _ storage.CompetitionStore = (*CompetitionStore)(nil)

// Create adds a competition. Returns ErrDuplicateKey if id exists.
func (s *CompetitionStore) Create(_ context.Context, c *domain.Competition) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if doc.find(c.ID) >= 0 {
		return storage.ErrDuplicateKey
	}
	doc.Competitions = append(doc.Competitions, demoCompetition{Competition: *c, Players: []domain.Participant{}})
	return s.save(doc)
}

// AddParticipant enters an address into a competition.
func (s *CompetitionStore) AddParticipant(_ context.Context, p *domain.Participant) error {
	if p == nil || p.CompetitionID == "" || p.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	i := doc.find(p.CompetitionID)
	if i < 0 {
		return storage.ErrNotFound
	}
	for _, existing := range doc.Competitions[i].Players {
		if existing.Address == p.Address {
			return storage.ErrDuplicateKey
		}
	}
	doc.Competitions[i].Players = append(doc.Competitions[i].Players, *p)
	return s.save(doc)
}

// ListByAddress returns the latest entries of address, newest first.
func (s *CompetitionStore) ListByAddress(_ context.Context, address string, limit int) ([]*domain.CompetitionEntry, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var result []*domain.CompetitionEntry
	for _, c := range doc.Competitions {
		for _, p := range c.Players {
			if p.Address == address {
				result = append(result, &domain.CompetitionEntry{Competition: c.Competition, Participant: p})
			}
		}
	}
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

	doc, err := s.load()
	if err != nil {
		return err
	}
	if doc.Metrics == nil {
		doc.Metrics = make(map[string]float64)
	}
	doc.Metrics[name] += delta
	return s.save(doc)
}

// Metrics returns all named metrics.
func (s *CompetitionStore) Metrics(_ context.Context) (map[string]float64, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(doc.Metrics))
	for k, v := range doc.Metrics {
		result[k] = v
	}
	return result, nil
}

func (s *CompetitionStore) load() (*competitionDoc, error) {
	doc := &competitionDoc{}
	if _, err := kvstore.GetJSON(s.kv, kvstore.KeyDemoCompetitions, doc); err != nil {
		return nil, fmt.Errorf("load demo competitions: %w", err)
	}
	return doc, nil
}

func (s *CompetitionStore) save(doc *competitionDoc) error {
	if err := kvstore.SetJSON(s.kv, kvstore.KeyDemoCompetitions, doc); err != nil {
		return fmt.Errorf("save demo competitions: %w", err)
	}
	return nil
}

func (d *competitionDoc) find(id string) int {
	for i := range d.Competitions {
		if d.Competitions[i].ID == id {
			return i
		}
	}
	return -1
}
