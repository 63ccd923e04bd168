package swap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nova-arcade/internal/domain"
)

type fakePrices struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakePrices) GetPrices(_ context.Context, mints []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64)
	for _, m := range mints {
		out[m] = float64(f.calls)
	}
	return out, nil
}

func (f *fakePrices) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPriceTracker_Refresh(t *testing.T) {
	src := &fakePrices{}
	tr := NewPriceTracker(src, []string{usdcMint, nagMint}, 0, nil)

	if _, ok := tr.Price(usdcMint); ok {
		t.Error("no price before refresh")
	}
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p, ok := tr.Price(nagMint); !ok || p != 1 {
		t.Errorf("Price() = %v, %v", p, ok)
	}

	src.err = errors.New("down")
	if err := tr.Refresh(context.Background()); err == nil {
		t.Error("expected refresh error")
	}
	prices, updated := tr.Prices()
	if prices[usdcMint] != 1 || updated.IsZero() {
		t.Errorf("previous prices should survive an error: %v", prices)
	}
}

func TestPriceTracker_RunStopsOnCancel(t *testing.T) {
	src := &fakePrices{}
	tr := NewPriceTracker(src, []string{usdcMint}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for src.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if src.count() < 3 {
		t.Errorf("expected repeated refreshes, got %d", src.count())
	}
}

func TestWatchQuote(t *testing.T) {
	venue := &fakeVenue{source: domain.QuoteSourceJupiter}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *domain.Quote, 10)
	go WatchQuote(ctx, venue, usdcMint, nagMint, "1000", 50, 5*time.Millisecond, func(q *domain.Quote, err error) {
		if err != nil {
			return
		}
		select {
		case got <- q:
		default:
		}
	})

	for i := 0; i < 2; i++ {
		select {
		case q := <-got:
			if q.InAmount != "1000" || q.SlippageBps != 50 {
				t.Errorf("unexpected quote %+v", q)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no quote received")
		}
	}
}
