package swap

import (
	"context"
	"sync"
	"time"

	"nova-arcade/internal/domain"
)

// DefaultDebounce coalesces keystrokes into one quote request.
const DefaultDebounce = 500 * time.Millisecond

// Quoter fetches quotes. *Router and *jupiter.Client satisfy it.
type Quoter interface {
	GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (*domain.Quote, error)
}

// QuoteUpdate is delivered after every settled amount change.
type QuoteUpdate struct {
	Amount    string        // input as typed
	Quote     *domain.Quote // nil when cleared or failed
	OutAmount string        // formatted output amount, empty when cleared
	Err       error
}

// QuoteSession re-quotes a token pair as the input amount changes.
// Only the latest amount is ever quoted: a newer amount cancels the
// pending timer and the in-flight request, whose result is dropped.
type QuoteSession struct {
	ctx         context.Context
	quoter      Quoter
	input       domain.Token
	output      domain.Token
	slippageBps int
	debounce    time.Duration
	onUpdate    func(QuoteUpdate)

	mu        sync.Mutex
	seq       uint64
	timer     *time.Timer
	cancel    context.CancelFunc
	quote     *domain.Quote
	outAmount string
	closed    bool
}

// SessionOption configures QuoteSession.
type SessionOption func(*QuoteSession)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *QuoteSession) {
		s.debounce = d
	}
}

// NewQuoteSession creates a session for input -> output. onUpdate may be
// nil. Requests are bound to ctx.
func NewQuoteSession(ctx context.Context, quoter Quoter, input, output domain.Token, slippageBps int, onUpdate func(QuoteUpdate), opts ...SessionOption) *QuoteSession {
	s := &QuoteSession{
		ctx:         ctx,
		quoter:      quoter,
		input:       input,
		output:      output,
		slippageBps: slippageBps,
		debounce:    DefaultDebounce,
		onUpdate:    onUpdate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAmount schedules a quote for amount. An empty or zero amount clears
// the current quote immediately without a request.
func (s *QuoteSession) SetAmount(amount string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.stopLocked()

	raw := ParseAmount(amount, int(s.input.Decimals))
	if raw == "0" {
		s.quote = nil
		s.outAmount = ""
		s.mu.Unlock()
		s.notify(QuoteUpdate{Amount: amount})
		return
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		s.fetch(seq, amount, raw)
	})
	s.mu.Unlock()
}

// Quote returns the latest quote, or nil.
func (s *QuoteSession) Quote() *domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote
}

// OutAmount returns the formatted output of the latest quote.
func (s *QuoteSession) OutAmount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outAmount
}

// Close cancels pending work. Later SetAmount calls are ignored.
func (s *QuoteSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.seq++
	s.stopLocked()
}

func (s *QuoteSession) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *QuoteSession) fetch(seq uint64, amount, raw string) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.mu.Unlock()

	q, err := s.quoter.GetQuote(ctx, s.input.Mint, s.output.Mint, raw, s.slippageBps)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = nil
	cancel()

	update := QuoteUpdate{Amount: amount, Err: err}
	if err != nil {
		s.quote = nil
		s.outAmount = ""
	} else {
		s.quote = q
		s.outAmount = FormatAmount(q.OutAmount, int(s.output.Decimals))
		update.Quote = q
		update.OutAmount = s.outAmount
	}
	s.mu.Unlock()
	s.notify(update)
}

func (s *QuoteSession) notify(u QuoteUpdate) {
	if s.onUpdate != nil {
		s.onUpdate(u)
	}
}
