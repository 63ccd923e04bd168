package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// TrialStore implements storage.TrialStore using PostgreSQL.
type TrialStore struct {
	pool *Pool
}

// NewTrialStore creates a new TrialStore.
func NewTrialStore(pool *Pool) *TrialStore {
	return &TrialStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrialStore = (*TrialStore)(nil)

// Get retrieves the record for identity. Returns ErrNotFound if absent.
func (s *TrialStore) Get(ctx context.Context, identity string) (*domain.TrialRecord, error) {
	query := `
		SELECT count, last_used, device_id, ip_fingerprint, games
		FROM trial_records
		WHERE identity = $1
	`

	var (
		rec   domain.TrialRecord
		games []byte
	)
	err := s.pool.QueryRow(ctx, query, identity).Scan(
		&rec.Count,
		&rec.LastUsed,
		&rec.DeviceID,
		&rec.IPFingerprint,
		&games,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trial record: %w", err)
	}

	if len(games) > 0 {
		if err := json.Unmarshal(games, &rec.Games); err != nil {
			return nil, fmt.Errorf("decode trial games: %w", err)
		}
	}
	return &rec, nil
}

// Put creates or replaces the record for identity.
func (s *TrialStore) Put(ctx context.Context, identity string, rec *domain.TrialRecord) error {
	if identity == "" || rec == nil {
		return storage.ErrInvalidInput
	}

	games, err := json.Marshal(rec.Games)
	if err != nil {
		return fmt.Errorf("encode trial games: %w", err)
	}

	query := `
		INSERT INTO trial_records (identity, count, last_used, device_id, ip_fingerprint, games, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (identity) DO UPDATE SET
			count = EXCLUDED.count,
			last_used = EXCLUDED.last_used,
			device_id = EXCLUDED.device_id,
			ip_fingerprint = EXCLUDED.ip_fingerprint,
			games = EXCLUDED.games,
			updated_at = now()
	`

	_, err = s.pool.Exec(ctx, query,
		identity,
		rec.Count,
		rec.LastUsed,
		rec.DeviceID,
		rec.IPFingerprint,
		games,
	)
	if err != nil {
		return fmt.Errorf("put trial record: %w", err)
	}
	return nil
}

// Delete removes the record for identity.
func (s *TrialStore) Delete(ctx context.Context, identity string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM trial_records WHERE identity = $1`, identity); err != nil {
		return fmt.Errorf("delete trial record: %w", err)
	}
	return nil
}

// Identities lists every identity with a stored record.
func (s *TrialStore) Identities(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT identity FROM trial_records ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("list trial identities: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan trial identity: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
