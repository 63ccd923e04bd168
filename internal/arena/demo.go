// Package arena runs Battle Arena demo entries. Demo competitions carry
// no funds; they record interest per mode and simulated volume.
package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/storage"
)

// HistoryLimit is the number of entries returned by History.
const HistoryLimit = 20

// ErrMissingParams is returned when an entry lacks a mode or amounts.
var ErrMissingParams = errors.New("missing_params")

// EntryRequest describes a demo entry. Nil amounts are missing.
type EntryRequest struct {
	Mode      string   `json:"mode"`
	EntryFee  *float64 `json:"entryFee"`
	PrizePool *float64 `json:"prizePool"`
}

// Demo records demo entries.
type Demo struct {
	store    storage.CompetitionStore
	activity *activity.Recorder
	log      slog.Logger
	now      func() time.Time
}

// NewDemo creates a demo service over store. rec and log may be nil.
func NewDemo(store storage.CompetitionStore, rec *activity.Recorder, log slog.Logger) *Demo {
	if log == nil {
		log = slog.Disabled
	}
	return &Demo{store: store, activity: rec, log: log, now: time.Now}
}

// Enter creates a waiting demo competition with address as its first
// participant and bumps the demo metrics.
func (d *Demo) Enter(ctx context.Context, address string, req EntryRequest) (*domain.Competition, error) {
	mode := strings.TrimSpace(req.Mode)
	if address == "" || mode == "" || req.EntryFee == nil || req.PrizePool == nil {
		return nil, ErrMissingParams
	}

	now := d.now().UnixMilli()
	c := &domain.Competition{
		ID:           uuid.NewString(),
		Mode:         mode,
		EntryFeeUSDC: *req.EntryFee,
		PrizePoolNAG: *req.PrizePool,
		Status:       domain.CompetitionWaiting,
		IsDemo:       true,
		CreatedAt:    now,
	}
	if err := d.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create competition: %w", err)
	}
	if err := d.store.AddParticipant(ctx, &domain.Participant{
		CompetitionID: c.ID,
		Address:       address,
		JoinedAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}

	d.updateStats(ctx, mode, c.EntryFeeUSDC)
	observability.RecordDemoEntry(mode)
	d.activity.Record(ctx, domain.ActivityDemoEntered, address, mode)
	d.log.Infof("demo entry %s: %s joined %s", c.ID, address, mode)
	return c, nil
}

// updateStats bumps the demo counters. Failures are logged only.
func (d *Demo) updateStats(ctx context.Context, mode string, entryFee float64) {
	deltas := []struct {
		name  string
		delta float64
	}{
		{domain.MetricDemoEntries, 1},
		{domain.MetricSimulatedVolume, entryFee},
		{domain.MetricPopularModePrefix + mode, 1},
	}
	for _, m := range deltas {
		if err := d.store.IncrementMetric(ctx, m.name, m.delta); err != nil {
			d.log.Warnf("increment %s: %v", m.name, err)
		}
	}
}

// Stats returns every demo metric.
func (d *Demo) Stats(ctx context.Context) (map[string]float64, error) {
	return d.store.Metrics(ctx)
}

// History returns the latest entries of address.
func (d *Demo) History(ctx context.Context, address string) ([]*domain.CompetitionEntry, error) {
	return d.store.ListByAddress(ctx, address, HistoryLimit)
}
