// Package activity records live feed events.
package activity

import (
	"context"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

// Recorder appends events to an ActivityStore. A nil Recorder or a
// Recorder without a store drops events. Store errors are logged, never
// returned: the feed must not fail the operation it describes.
type Recorder struct {
	store storage.ActivityStore
	log   slog.Logger
	now   func() time.Time
}

// NewRecorder creates a recorder. store may be nil.
func NewRecorder(store storage.ActivityStore, log slog.Logger) *Recorder {
	if log == nil {
		log = slog.Disabled
	}
	return &Recorder{store: store, log: log, now: time.Now}
}

// Record appends an event of kind for identity.
func (r *Recorder) Record(ctx context.Context, kind domain.ActivityKind, identity, detail string) {
	if r == nil || r.store == nil {
		return
	}
	e := &domain.ActivityEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Identity:   identity,
		Detail:     detail,
		OccurredAt: r.now().UnixMilli(),
	}
	if err := r.store.Insert(ctx, e); err != nil {
		r.log.Warnf("record %s activity: %v", kind, err)
	}
}

// Recent returns the latest events, or nil when no store is configured.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*domain.ActivityEvent, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}
	return r.store.Recent(ctx, limit)
}
