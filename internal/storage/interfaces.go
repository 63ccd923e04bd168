package storage

import (
	"context"

	"nova-arcade/internal/domain"
)

// TrialStore persists trial records keyed by identity.
type TrialStore interface {
	// Get retrieves the record for identity. Returns ErrNotFound if absent.
	Get(ctx context.Context, identity string) (*domain.TrialRecord, error)

	// Put creates or replaces the record for identity.
	Put(ctx context.Context, identity string, rec *domain.TrialRecord) error

	// Delete removes the record for identity. Deleting a missing record is not an error.
	Delete(ctx context.Context, identity string) error

	// Identities lists every identity with a stored record.
	Identities(ctx context.Context) ([]string, error)
}

// WaitlistStore provides access to battle_arena_waitlist storage.
type WaitlistStore interface {
	// Insert adds an entry. Returns ErrDuplicateKey if the email exists.
	Insert(ctx context.Context, e *domain.WaitlistEntry) error

	// GetByEmail retrieves an entry by email. Returns ErrNotFound if not exists.
	GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error)

	// List returns all entries ordered by timestamp DESC.
	List(ctx context.Context) ([]*domain.WaitlistEntry, error)
}

// CompetitionStore provides access to competitions, participants and demo metrics.
type CompetitionStore interface {
	// Create adds a competition. Returns ErrDuplicateKey if id exists.
	Create(ctx context.Context, c *domain.Competition) error

	// AddParticipant enters an address into a competition.
	// Returns ErrNotFound if the competition does not exist.
	AddParticipant(ctx context.Context, p *domain.Participant) error

	// ListByAddress returns the latest entries of address, newest first.
	ListByAddress(ctx context.Context, address string, limit int) ([]*domain.CompetitionEntry, error)

	// IncrementMetric adds delta to a named metric, creating it at zero.
	IncrementMetric(ctx context.Context, name string, delta float64) error

	// Metrics returns all named metrics.
	Metrics(ctx context.Context) (map[string]float64, error)
}

// ActivityStore provides access to the activity feed.
type ActivityStore interface {
	// Insert appends an event.
	Insert(ctx context.Context, e *domain.ActivityEvent) error

	// Recent returns up to limit events ordered by occurred_at DESC.
	Recent(ctx context.Context, limit int) ([]*domain.ActivityEvent, error)
}
