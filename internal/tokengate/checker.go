// Package tokengate decides token-holder access from on-chain balances.
package tokengate

import (
	"context"

	"github.com/decred/slog"
	"github.com/shopspring/decimal"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/solana"
)

// Checker reads a wallet's balance of the gate token.
type Checker struct {
	rpc      solana.RPCClient
	mint     string
	minimum  float64
	programs []string
	log      slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(log slog.Logger) Option {
	return func(c *Checker) {
		c.log = log
	}
}

// WithTokenPrograms overrides the token programs that are searched.
func WithTokenPrograms(ids ...string) Option {
	return func(c *Checker) {
		c.programs = ids
	}
}

// NewChecker creates a checker for mint requiring at least minimum ui
// units. Balances are summed across the Token and Token-2022 programs.
func NewChecker(rpc solana.RPCClient, mint string, minimum float64, opts ...Option) *Checker {
	c := &Checker{
		rpc:      rpc,
		mint:     mint,
		minimum:  minimum,
		programs: []string{solana.TokenProgramID, solana.Token2022ProgramID},
		log:      slog.Disabled,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mint returns the gate token mint.
func (c *Checker) Mint() string { return c.mint }

// Minimum returns the required ui balance.
func (c *Checker) Minimum() float64 { return c.minimum }

// CheckTokenBalance returns the gate status for owner against the gate mint.
// Any failure, including an invalid address or an RPC error, yields
// balance 0 and no access.
func (c *Checker) CheckTokenBalance(ctx context.Context, owner string) domain.TokenGateStatus {
	return c.CheckHolder(ctx, owner, c.mint)
}

// CheckHolder is CheckTokenBalance for an arbitrary mint with the same
// minimum.
func (c *Checker) CheckHolder(ctx context.Context, owner, mint string) domain.TokenGateStatus {
	status := domain.TokenGateStatus{
		MinimumRequired: c.minimum,
		TokenMint:       mint,
	}
	if owner == "" {
		return status
	}
	if !solana.IsWalletAddress(owner) {
		c.log.Debugf("rejecting invalid wallet address %q", owner)
		observability.RecordTokenCheck("invalid")
		return status
	}

	balance, err := c.balance(ctx, owner, mint)
	if err != nil {
		c.log.Warnf("token balance for %s: %v", owner, err)
		observability.RecordTokenCheck("error")
		return status
	}

	status.Balance = balance
	status.HasAccess = MeetsMinimum(balance, c.minimum)
	if status.HasAccess {
		observability.RecordTokenCheck("access")
	} else {
		observability.RecordTokenCheck("no_access")
	}
	return status
}

func (c *Checker) balance(ctx context.Context, owner, mint string) (float64, error) {
	total := decimal.Zero
	for _, program := range c.programs {
		accounts, err := c.rpc.GetTokenAccountsByOwner(ctx, owner, program)
		if err != nil {
			return 0, err
		}
		for _, a := range accounts {
			if a.Mint == mint {
				total = total.Add(decimal.NewFromFloat(a.UIAmount))
			}
		}
	}
	return total.InexactFloat64(), nil
}

// MeetsMinimum reports balance >= minimum, compared as decimals.
func MeetsMinimum(balance, minimum float64) bool {
	return decimal.NewFromFloat(balance).GreaterThanOrEqual(decimal.NewFromFloat(minimum))
}
