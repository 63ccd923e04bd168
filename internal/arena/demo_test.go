package arena

import (
	"context"
	"errors"
	"testing"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage/memory"
)

func ptr(f float64) *float64 { return &f }

func TestDemoEnter(t *testing.T) {
	store := memory.NewCompetitionStore()
	feed := memory.NewActivityStore()
	d := NewDemo(store, activity.NewRecorder(feed, nil), nil)
	ctx := context.Background()

	c, err := d.Enter(ctx, "Wallet1", EntryRequest{Mode: "1v1", EntryFee: ptr(10), PrizePool: ptr(180)})
	if err != nil {
		t.Fatalf("Enter() error: %v", err)
	}
	if !c.IsDemo || c.Status != domain.CompetitionWaiting || c.ID == "" {
		t.Errorf("unexpected competition: %+v", c)
	}

	if _, err := d.Enter(ctx, "Wallet1", EntryRequest{Mode: "tournament", EntryFee: ptr(50), PrizePool: ptr(0)}); err != nil {
		t.Fatalf("second Enter() error: %v", err)
	}

	stats, err := d.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{
		domain.MetricDemoEntries:                      2,
		domain.MetricSimulatedVolume:                  60,
		domain.MetricPopularModePrefix + "1v1":        1,
		domain.MetricPopularModePrefix + "tournament": 1,
	}
	for k, v := range want {
		if stats[k] != v {
			t.Errorf("stats[%s] = %v, want %v", k, stats[k], v)
		}
	}

	history, err := d.History(ctx, "Wallet1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("History() len = %d", len(history))
	}

	events, _ := feed.Recent(ctx, 10)
	if len(events) != 2 || events[0].Kind != domain.ActivityDemoEntered {
		t.Errorf("unexpected activity: %+v", events)
	}
}

func TestDemoEnter_MissingParams(t *testing.T) {
	d := NewDemo(memory.NewCompetitionStore(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		address string
		req     EntryRequest
	}{
		{"no address", "", EntryRequest{Mode: "1v1", EntryFee: ptr(1), PrizePool: ptr(1)}},
		{"no mode", "W", EntryRequest{EntryFee: ptr(1), PrizePool: ptr(1)}},
		{"no fee", "W", EntryRequest{Mode: "1v1", PrizePool: ptr(1)}},
		{"no prize", "W", EntryRequest{Mode: "1v1", EntryFee: ptr(1)}},
	}
	for _, tt := range tests {
		if _, err := d.Enter(ctx, tt.address, tt.req); !errors.Is(err, ErrMissingParams) {
			t.Errorf("%s: err = %v", tt.name, err)
		}
	}

	// a zero fee is present, not missing
	if _, err := d.Enter(ctx, "W", EntryRequest{Mode: "team", EntryFee: ptr(0), PrizePool: ptr(0)}); err != nil {
		t.Errorf("zero amounts rejected: %v", err)
	}
}
