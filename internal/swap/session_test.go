package swap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nova-arcade/internal/domain"
)

var (
	usdc = domain.Token{Symbol: "USDC", Mint: usdcMint, Decimals: 6}
	nag  = domain.Token{Symbol: "NAG", Mint: nagMint, Decimals: 6}
)

// recordingQuoter records requested amounts. block, when set, holds a
// request for that amount until its context ends.
type recordingQuoter struct {
	mu      sync.Mutex
	amounts []string
	block   string
}

func (q *recordingQuoter) GetQuote(ctx context.Context, in, out, amount string, slippageBps int) (*domain.Quote, error) {
	q.mu.Lock()
	q.amounts = append(q.amounts, amount)
	block := q.block
	q.mu.Unlock()

	if amount == block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &domain.Quote{InputMint: in, OutputMint: out, InAmount: amount, OutAmount: amount + "0"}, nil
}

func (q *recordingQuoter) calls() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.amounts...)
}

func waitUpdate(t *testing.T, ch <-chan QuoteUpdate) QuoteUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quote update")
		return QuoteUpdate{}
	}
}

func TestQuoteSession_Debounce(t *testing.T) {
	q := &recordingQuoter{}
	updates := make(chan QuoteUpdate, 10)
	s := NewQuoteSession(context.Background(), q, usdc, nag, 100, func(u QuoteUpdate) { updates <- u }, WithDebounce(30*time.Millisecond))
	defer s.Close()

	s.SetAmount("1")
	s.SetAmount("10")
	s.SetAmount("100")

	u := waitUpdate(t, updates)
	if u.Err != nil || u.Amount != "100" {
		t.Fatalf("unexpected update: %+v", u)
	}
	if calls := q.calls(); len(calls) != 1 || calls[0] != "100000000" {
		t.Errorf("quoter calls = %v, want one call for 100000000", calls)
	}
	if u.OutAmount != "1000.0000" || s.OutAmount() != "1000.0000" {
		t.Errorf("OutAmount = %q", u.OutAmount)
	}
	if s.Quote() == nil {
		t.Error("quote should be kept")
	}
}

func TestQuoteSession_ZeroClears(t *testing.T) {
	q := &recordingQuoter{}
	updates := make(chan QuoteUpdate, 10)
	s := NewQuoteSession(context.Background(), q, usdc, nag, 100, func(u QuoteUpdate) { updates <- u }, WithDebounce(10*time.Millisecond))
	defer s.Close()

	s.SetAmount("5")
	waitUpdate(t, updates)

	for _, amount := range []string{"0", ""} {
		s.SetAmount(amount)
		u := waitUpdate(t, updates)
		if u.Quote != nil || u.OutAmount != "" {
			t.Errorf("SetAmount(%q) update = %+v", amount, u)
		}
		if s.Quote() != nil || s.OutAmount() != "" {
			t.Errorf("SetAmount(%q) should clear the quote", amount)
		}
	}

	time.Sleep(30 * time.Millisecond)
	if calls := q.calls(); len(calls) != 1 {
		t.Errorf("zero amounts must not reach the quoter: %v", calls)
	}
}

func TestQuoteSession_SupersedesInFlight(t *testing.T) {
	q := &recordingQuoter{block: "1000000"}
	updates := make(chan QuoteUpdate, 10)
	s := NewQuoteSession(context.Background(), q, usdc, nag, 100, func(u QuoteUpdate) { updates <- u }, WithDebounce(5*time.Millisecond))
	defer s.Close()

	s.SetAmount("1")
	deadline := time.Now().Add(2 * time.Second)
	for len(q.calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	s.SetAmount("2")
	u := waitUpdate(t, updates)
	if u.Amount != "2" || u.Err != nil {
		t.Fatalf("expected update for the newer amount, got %+v", u)
	}

	select {
	case stale := <-updates:
		t.Errorf("stale result delivered: %+v", stale)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestQuoteSession_ErrorClearsQuote(t *testing.T) {
	updates := make(chan QuoteUpdate, 1)
	failing := &fakeVenue{quoteErr: errors.New("No routes found")}
	s := NewQuoteSession(context.Background(), failing, usdc, nag, 100, func(u QuoteUpdate) { updates <- u }, WithDebounce(time.Millisecond))
	defer s.Close()

	s.SetAmount("3")
	u := waitUpdate(t, updates)
	if u.Err == nil || u.Quote != nil {
		t.Errorf("unexpected update: %+v", u)
	}
	if UserMessage(u.Err, nag.Symbol) != "NAG token not found on Jupiter" {
		t.Errorf("UserMessage() = %q", UserMessage(u.Err, nag.Symbol))
	}
}

func TestQuoteSession_Close(t *testing.T) {
	q := &recordingQuoter{}
	s := NewQuoteSession(context.Background(), q, usdc, nag, 100, nil, WithDebounce(10*time.Millisecond))

	s.SetAmount("1")
	s.Close()
	s.SetAmount("2")

	time.Sleep(40 * time.Millisecond)
	if calls := q.calls(); len(calls) != 0 {
		t.Errorf("closed session made requests: %v", calls)
	}
}
