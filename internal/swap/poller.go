package swap

import (
	"context"
	"sync"
	"time"

	"github.com/decred/slog"

	"nova-arcade/internal/domain"
)

// Polling defaults.
const (
	DefaultPriceInterval = 30 * time.Second
	DefaultWatchInterval = 3 * time.Second
)

// Poll calls fn immediately and then every interval until ctx is done.
func Poll(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// WatchQuote re-quotes a fixed amount every interval until ctx is done.
func WatchQuote(ctx context.Context, q Quoter, inputMint, outputMint, amount string, slippageBps int, interval time.Duration, fn func(*domain.Quote, error)) {
	Poll(ctx, interval, func(ctx context.Context) {
		quote, err := q.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
		if ctx.Err() != nil {
			return
		}
		fn(quote, err)
	})
}

// PriceSource fetches USD prices by mint.
type PriceSource interface {
	GetPrices(ctx context.Context, mints []string) (map[string]float64, error)
}

// PriceTracker keeps the latest prices of a fixed set of mints.
type PriceTracker struct {
	src      PriceSource
	mints    []string
	interval time.Duration
	log      slog.Logger

	mu      sync.RWMutex
	prices  map[string]float64
	updated time.Time
}

// NewPriceTracker creates a tracker. interval <= 0 selects
// DefaultPriceInterval.
func NewPriceTracker(src PriceSource, mints []string, interval time.Duration, log slog.Logger) *PriceTracker {
	if interval <= 0 {
		interval = DefaultPriceInterval
	}
	if log == nil {
		log = slog.Disabled
	}
	return &PriceTracker{
		src:      src,
		mints:    append([]string(nil), mints...),
		interval: interval,
		log:      log,
		prices:   make(map[string]float64),
	}
}

// Run refreshes prices until ctx is done.
func (t *PriceTracker) Run(ctx context.Context) {
	Poll(ctx, t.interval, func(ctx context.Context) {
		if err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
			t.log.Warnf("price refresh: %v", err)
		}
	})
}

// Refresh fetches prices once. Previous prices are kept on error.
func (t *PriceTracker) Refresh(ctx context.Context) error {
	prices, err := t.src.GetPrices(ctx, t.mints)
	if err != nil {
		return err
	}

	t.mu.Lock()
	for mint, p := range prices {
		t.prices[mint] = p
	}
	t.updated = time.Now()
	t.mu.Unlock()
	return nil
}

// Price returns the cached price of mint.
func (t *PriceTracker) Price(mint string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.prices[mint]
	return p, ok
}

// Prices returns a copy of all cached prices and when they were fetched.
func (t *PriceTracker) Prices() (map[string]float64, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.prices))
	for k, v := range t.prices {
		out[k] = v
	}
	return out, t.updated
}
