package clickhouse

import (
	"context"
	"fmt"
	"time"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/storage"
)

// ActivityStore implements storage.ActivityStore using ClickHouse.
type ActivityStore struct {
	conn *Conn
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(conn *Conn) *ActivityStore {
	return &ActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// Insert appends an event.
func (s *ActivityStore) Insert(ctx context.Context, e *domain.ActivityEvent) (err error) {
	if e == nil || e.Kind == "" {
		return storage.ErrInvalidInput
	}
	defer observeQuery("insert", time.Now(), &err)

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO activity_events")
	if err != nil {
		return fmt.Errorf("prepare activity batch: %w", err)
	}

	if err := batch.Append(e.ID, string(e.Kind), e.Identity, e.Detail, uint64(e.OccurredAt)); err != nil {
		return fmt.Errorf("append activity event: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send activity batch: %w", err)
	}
	return nil
}

// Recent returns up to limit events ordered by occurred_at DESC.
func (s *ActivityStore) Recent(ctx context.Context, limit int) (_ []*domain.ActivityEvent, err error) {
	if limit <= 0 {
		limit = 50
	}
	defer observeQuery("select", time.Now(), &err)

	query := `
		SELECT id, kind, identity, detail, occurred_at_ms
		FROM activity_events
		ORDER BY occurred_at_ms DESC, id DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	defer rows.Close()

	var result []*domain.ActivityEvent
	for rows.Next() {
		var (
			e          domain.ActivityEvent
			kind       string
			occurredAt uint64
		)
		if err := rows.Scan(&e.ID, &kind, &e.Identity, &e.Detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan activity event: %w", err)
		}
		e.Kind = domain.ActivityKind(kind)
		e.OccurredAt = int64(occurredAt)
		result = append(result, &e)
	}
	return result, rows.Err()
}

func observeQuery(op string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), *err)
}
