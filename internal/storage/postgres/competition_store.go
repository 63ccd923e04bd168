package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// CompetitionStore implements storage.CompetitionStore using PostgreSQL.
type CompetitionStore struct {
	pool *Pool
}

// NewCompetitionStore creates a new CompetitionStore.
func NewCompetitionStore(pool *Pool) *CompetitionStore {
	return &CompetitionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CompetitionStore = (*CompetitionStore)(nil)

// Create adds a competition. Returns ErrDuplicateKey if id exists.
func (s *CompetitionStore) Create(ctx context.Context, c *domain.Competition) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO competitions (id, mode, entry_fee_usdc, prize_pool_nag, status, is_demo, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		c.ID,
		c.Mode,
		c.EntryFeeUSDC,
		c.PrizePoolNAG,
		string(c.Status),
		c.IsDemo,
		c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert competition: %w", err)
	}
	return nil
}

// AddParticipant enters an address into a competition.
func (s *CompetitionStore) AddParticipant(ctx context.Context, p *domain.Participant) error {
	if p == nil || p.CompetitionID == "" || p.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO competition_participants (competition_id, address, score, placement, joined_at_ms)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, p.CompetitionID, p.Address, p.Score, p.Placement, p.JoinedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// ListByAddress returns the latest entries of address, newest first.
func (s *CompetitionStore) ListByAddress(ctx context.Context, address string, limit int) ([]*domain.CompetitionEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT c.id, c.mode, c.entry_fee_usdc, c.prize_pool_nag, c.status, c.is_demo, c.created_at_ms,
		       p.competition_id, p.address, p.score, p.placement, p.joined_at_ms
		FROM competition_participants p
		JOIN competitions c ON c.id = p.competition_id
		WHERE p.address = $1
		ORDER BY p.joined_at_ms DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, address, limit)
	if err != nil {
		return nil, fmt.Errorf("list competitions by address: %w", err)
	}
	defer rows.Close()

	var result []*domain.CompetitionEntry
	for rows.Next() {
		e, err := scanCompetitionEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competition entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// IncrementMetric adds delta to a named metric.
func (s *CompetitionStore) IncrementMetric(ctx context.Context, name string, delta float64) error {
	if name == "" {
		return storage.ErrInvalidInput
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO demo_metrics (metric_name, metric_value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (metric_name) DO UPDATE SET
				metric_value = demo_metrics.metric_value + EXCLUDED.metric_value,
				updated_at = now()
		`
		if _, err := tx.Exec(ctx, query, name, delta); err != nil {
			return fmt.Errorf("increment metric %s: %w", name, err)
		}
		return nil
	})
}

// Metrics returns all named metrics.
func (s *CompetitionStore) Metrics(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `SELECT metric_name, metric_value FROM demo_metrics`)
	if err != nil {
		return nil, fmt.Errorf("list demo metrics: %w", err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var (
			name  string
			value float64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan demo metric: %w", err)
		}
		result[name] = value
	}
	return result, rows.Err()
}

func scanCompetitionEntry(row pgx.Row) (*domain.CompetitionEntry, error) {
	var (
		e      domain.CompetitionEntry
		status string
	)
	err := row.Scan(
		&e.Competition.ID,
		&e.Competition.Mode,
		&e.Competition.EntryFeeUSDC,
		&e.Competition.PrizePoolNAG,
		&status,
		&e.Competition.IsDemo,
		&e.Competition.CreatedAt,
		&e.Participant.CompetitionID,
		&e.Participant.Address,
		&e.Participant.Score,
		&e.Participant.Placement,
		&e.Participant.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Competition.Status = domain.CompetitionStatus(status)
	return &e, nil
}
