package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// WaitlistStore implements storage.WaitlistStore using PostgreSQL.
// Uniqueness is enforced by the battle_arena_waitlist email index.
type WaitlistStore struct {
	pool *Pool
}

// NewWaitlistStore creates a new WaitlistStore.
func NewWaitlistStore(pool *Pool) *WaitlistStore {
	return &WaitlistStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WaitlistStore = (*WaitlistStore)(nil)

// Insert adds an entry. Returns ErrDuplicateKey if the email exists.
// The email is stored lowercased.
func (s *WaitlistStore) Insert(ctx context.Context, e *domain.WaitlistEntry) error {
	if e == nil || e.Email == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO battle_arena_waitlist (id, email, wallet_address, source, created_at_ms)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID,
		strings.ToLower(e.Email),
		e.WalletAddress,
		e.Source,
		e.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	return nil
}

// GetByEmail retrieves an entry by email. Returns ErrNotFound if not exists.
func (s *WaitlistStore) GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error) {
	query := `
		SELECT id, email, wallet_address, source, created_at_ms
		FROM battle_arena_waitlist
		WHERE email = $1
	`

	e, err := scanWaitlistEntry(s.pool.QueryRow(ctx, query, strings.ToLower(email)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get waitlist entry: %w", err)
	}
	return e, nil
}

// List returns all entries ordered by timestamp DESC.
func (s *WaitlistStore) List(ctx context.Context) ([]*domain.WaitlistEntry, error) {
	query := `
		SELECT id, email, wallet_address, source, created_at_ms
		FROM battle_arena_waitlist
		ORDER BY created_at_ms DESC, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	var result []*domain.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// scanWaitlistEntry scans a single row into WaitlistEntry.
func scanWaitlistEntry(row pgx.Row) (*domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	if err := row.Scan(&e.ID, &e.Email, &e.WalletAddress, &e.Source, &e.Timestamp); err != nil {
		return nil, err
	}
	return &e, nil
}
