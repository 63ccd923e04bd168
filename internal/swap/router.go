// Package swap quotes and executes token swaps. Tokens still on a pump.fun
// bonding curve are quoted through Metis, everything else through Jupiter.
package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/pumpfun"
	"nova-arcade/internal/solana"
)

// Router decisions, used as metric labels.
const (
	RouteJupiter         = "jupiter"
	RoutePumpFun         = "pumpfun"
	RoutePumpFunFallback = "pumpfun_fallback"
)

// Venue quotes and builds swaps.
type Venue interface {
	GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (*domain.Quote, error)
	GetSwapTransaction(ctx context.Context, quote *domain.Quote, userPubkey string, priorityFee uint64) (*domain.SwapTransaction, error)
}

// CurveInfo reports bonding-curve state from Metis.
type CurveInfo interface {
	TokenInfo(ctx context.Context, mint string) (*pumpfun.TokenInfo, error)
}

// Router picks the venue for a token pair.
type Router struct {
	rpc     solana.RPCClient
	jupiter Venue
	metis   Venue
	curve   CurveInfo
	log     slog.Logger
}

// RouterOption configures Router.
type RouterOption func(*Router)

// WithMetis enables bonding-curve routing through c. An unconfigured
// client is ignored.
func WithMetis(c *pumpfun.Client) RouterOption {
	return func(r *Router) {
		if c.Configured() {
			r.metis = c
			r.curve = c
		}
	}
}

// WithRouterLogger sets the logger.
func WithRouterLogger(log slog.Logger) RouterOption {
	return func(r *Router) {
		r.log = log
	}
}

// NewRouter creates a router quoting through jupiter by default.
func NewRouter(rpc solana.RPCClient, jupiter Venue, opts ...RouterOption) *Router {
	r := &Router{
		rpc:     rpc,
		jupiter: jupiter,
		log:     slog.Disabled,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsPreBonded reports whether mint still trades on its bonding curve.
// A missing curve account means the token graduated. When Metis is
// available its answer wins. Errors count as graduated.
func (r *Router) IsPreBonded(ctx context.Context, mint string) bool {
	addr, err := pumpfun.BondingCurveAddress(mint)
	if err != nil {
		r.log.Debugf("%s: %v", mint, err)
		return false
	}

	acct, err := r.rpc.GetAccountInfo(ctx, addr.String())
	if err != nil {
		r.log.Warnf("%s: bonding curve lookup: %v", mint, err)
		return false
	}
	if acct == nil {
		return false
	}

	if r.curve != nil {
		info, err := r.curve.TokenInfo(ctx, mint)
		if err == nil {
			return info.BondingCurve.Active
		}
		r.log.Warnf("%s: metis token check failed, using account state: %v", mint, err)
	}
	return true
}

// GetQuote checks both mints and quotes through Metis when either is on a
// bonding curve, falling back to Jupiter if Metis fails.
func (r *Router) GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (*domain.Quote, error) {
	var inPre, outPre bool
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		inPre = r.IsPreBonded(egctx, inputMint)
		return nil
	})
	eg.Go(func() error {
		outPre = r.IsPreBonded(egctx, outputMint)
		return nil
	})
	_ = eg.Wait()

	if !inPre && !outPre {
		observability.RecordRoute(RouteJupiter)
		return r.jupiter.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
	}

	if r.metis == nil {
		r.log.Debugf("%s/%s on bonding curve but Metis is not configured", inputMint, outputMint)
		observability.RecordRoute(RoutePumpFunFallback)
		return r.jupiter.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
	}

	q, err := r.metis.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err == nil {
		observability.RecordRoute(RoutePumpFun)
		return q, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.log.Warnf("pump.fun quote failed, trying Jupiter: %v", err)
	observability.RecordRoute(RoutePumpFunFallback)
	return r.jupiter.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
}

// SwapTransaction builds the swap through the venue that quoted it.
func (r *Router) SwapTransaction(ctx context.Context, quote *domain.Quote, userPubkey string, priorityFee uint64) (*domain.SwapTransaction, error) {
	if quote == nil {
		return nil, errors.New("no quote")
	}
	switch quote.Source {
	case domain.QuoteSourcePumpFun:
		if r.metis == nil {
			return nil, pumpfun.ErrNoAPIKeySwap
		}
		return r.metis.GetSwapTransaction(ctx, quote, userPubkey, priorityFee)
	case domain.QuoteSourceJupiter, "":
		return r.jupiter.GetSwapTransaction(ctx, quote, userPubkey, priorityFee)
	default:
		return nil, fmt.Errorf("unknown quote source %q", quote.Source)
	}
}
