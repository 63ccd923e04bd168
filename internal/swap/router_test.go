package swap

import (
	"context"
	"errors"
	"testing"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/pumpfun"
	"nova-arcade/internal/solana"
	"nova-arcade/internal/solana/stub"
)

const (
	nagMint  = "957tKDz9GKtY3X54WuJUkhYfnNJsrAoyQQZpMjS1pump"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type fakeCurve struct {
	active bool
	err    error
	calls  int
}

func (f *fakeCurve) TokenInfo(_ context.Context, mint string) (*pumpfun.TokenInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &pumpfun.TokenInfo{Mint: mint, BondingCurve: pumpfun.BondingCurve{Active: f.active}}, nil
}

func withCurveAccount(t *testing.T, rpc *stub.RPCClient, mint string) {
	t.Helper()
	addr, err := pumpfun.BondingCurveAddress(mint)
	if err != nil {
		t.Fatal(err)
	}
	rpc.AddAccount(addr.String(), &solana.AccountInfo{Lamports: 1, Owner: pumpfun.ProgramID})
}

func TestIsPreBonded(t *testing.T) {
	ctx := context.Background()

	t.Run("no curve account", func(t *testing.T) {
		r := NewRouter(stub.NewRPCClient(), &fakeVenue{})
		if r.IsPreBonded(ctx, nagMint) {
			t.Error("graduated token reported as pre-bonded")
		}
	})

	t.Run("curve account without metis", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		withCurveAccount(t, rpc, nagMint)
		r := NewRouter(rpc, &fakeVenue{})
		if !r.IsPreBonded(ctx, nagMint) {
			t.Error("expected pre-bonded")
		}
	})

	t.Run("metis says graduated", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		withCurveAccount(t, rpc, nagMint)
		r := NewRouter(rpc, &fakeVenue{})
		r.curve = &fakeCurve{active: false}
		if r.IsPreBonded(ctx, nagMint) {
			t.Error("Metis answer should win")
		}
	})

	t.Run("metis error keeps account result", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		withCurveAccount(t, rpc, nagMint)
		r := NewRouter(rpc, &fakeVenue{})
		r.curve = &fakeCurve{err: errors.New("timeout")}
		if !r.IsPreBonded(ctx, nagMint) {
			t.Error("expected pre-bonded")
		}
	})

	t.Run("rpc error", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		rpc.Err = stub.ErrUnavailable
		if NewRouter(rpc, &fakeVenue{}).IsPreBonded(ctx, nagMint) {
			t.Error("errors must count as graduated")
		}
	})

	t.Run("invalid mint", func(t *testing.T) {
		if NewRouter(stub.NewRPCClient(), &fakeVenue{}).IsPreBonded(ctx, "bogus") {
			t.Error("invalid mint must count as graduated")
		}
	})
}

func TestRouterGetQuote(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		preBonded    bool
		metis        *fakeVenue
		wantSource   domain.QuoteSource
		wantJupiter  int
		wantMetisHit int
	}{
		{"graduated uses jupiter", false, &fakeVenue{source: domain.QuoteSourcePumpFun}, domain.QuoteSourceJupiter, 1, 0},
		{"pre-bonded uses metis", true, &fakeVenue{source: domain.QuoteSourcePumpFun}, domain.QuoteSourcePumpFun, 0, 1},
		{"metis failure falls back", true, &fakeVenue{quoteErr: errors.New("503")}, domain.QuoteSourceJupiter, 1, 1},
		{"pre-bonded without metis", true, nil, domain.QuoteSourceJupiter, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := stub.NewRPCClient()
			if tt.preBonded {
				withCurveAccount(t, rpc, nagMint)
			}
			jup := &fakeVenue{source: domain.QuoteSourceJupiter}
			r := NewRouter(rpc, jup)
			if tt.metis != nil {
				r.metis = tt.metis
			}

			q, err := r.GetQuote(ctx, usdcMint, nagMint, "1000000", 100)
			if err != nil {
				t.Fatalf("GetQuote() error: %v", err)
			}
			if q.Source != tt.wantSource {
				t.Errorf("Source = %s, want %s", q.Source, tt.wantSource)
			}
			if n, _ := jup.counts(); n != tt.wantJupiter {
				t.Errorf("jupiter quotes = %d, want %d", n, tt.wantJupiter)
			}
			if tt.metis != nil {
				if n, _ := tt.metis.counts(); n != tt.wantMetisHit {
					t.Errorf("metis quotes = %d, want %d", n, tt.wantMetisHit)
				}
			}
		})
	}
}

func TestRouterSwapTransaction(t *testing.T) {
	ctx := context.Background()
	jup := &fakeVenue{tx: []byte{1}}
	metis := &fakeVenue{tx: []byte{2}}

	r := NewRouter(stub.NewRPCClient(), jup)
	if _, err := r.SwapTransaction(ctx, &domain.Quote{Source: domain.QuoteSourcePumpFun}, "pk", 0); !errors.Is(err, pumpfun.ErrNoAPIKeySwap) {
		t.Errorf("pump.fun quote without metis: %v", err)
	}

	r.metis = metis
	if _, err := r.SwapTransaction(ctx, &domain.Quote{Source: domain.QuoteSourcePumpFun}, "pk", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := r.SwapTransaction(ctx, &domain.Quote{Source: domain.QuoteSourceJupiter}, "pk", 0); err != nil {
		t.Fatal(err)
	}
	if _, s := metis.counts(); s != 1 {
		t.Errorf("metis swaps = %d", s)
	}
	if _, s := jup.counts(); s != 1 {
		t.Errorf("jupiter swaps = %d", s)
	}
	if _, err := r.SwapTransaction(ctx, &domain.Quote{Source: "orca"}, "pk", 0); err == nil {
		t.Error("unknown source should fail")
	}
}

func TestWithMetis_Unconfigured(t *testing.T) {
	r := NewRouter(stub.NewRPCClient(), &fakeVenue{}, WithMetis(pumpfun.NewClient("")))
	if r.metis != nil || r.curve != nil {
		t.Error("client without key must not enable Metis routing")
	}
	r = NewRouter(stub.NewRPCClient(), &fakeVenue{}, WithMetis(pumpfun.NewClient("key")))
	if r.metis == nil || r.curve == nil {
		t.Error("configured client should enable Metis routing")
	}
}
