package tokengate

import (
	"context"
	"testing"

	"nova-arcade/internal/solana"
	"nova-arcade/internal/solana/stub"
)

const (
	testMint   = "957tKDz9GKtY3X54WuJUkhYfnNJsrAoyQQZpMjS1pump"
	testWallet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestCheckTokenBalance(t *testing.T) {
	tests := []struct {
		name       string
		accounts   []solana.TokenAccount
		wantAccess bool
		wantBal    float64
	}{
		{
			name:       "no accounts",
			accounts:   nil,
			wantAccess: false,
			wantBal:    0,
		},
		{
			name: "other mint only",
			accounts: []solana.TokenAccount{
				{Mint: "So11111111111111111111111111111111111111112", UIAmount: 500000},
			},
			wantAccess: false,
			wantBal:    0,
		},
		{
			name: "below minimum",
			accounts: []solana.TokenAccount{
				{Mint: testMint, UIAmount: 99999.999999},
			},
			wantAccess: false,
			wantBal:    99999.999999,
		},
		{
			name: "exactly minimum",
			accounts: []solana.TokenAccount{
				{Mint: testMint, UIAmount: 100000},
			},
			wantAccess: true,
			wantBal:    100000,
		},
		{
			name: "split across accounts",
			accounts: []solana.TokenAccount{
				{Mint: testMint, UIAmount: 60000},
				{Mint: testMint, UIAmount: 40000},
			},
			wantAccess: true,
			wantBal:    100000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := stub.NewRPCClient()
			for _, a := range tt.accounts {
				rpc.AddTokenAccount(testWallet, a)
			}
			checker := NewChecker(rpc, testMint, 100000)

			got := checker.CheckTokenBalance(context.Background(), testWallet)
			if got.HasAccess != tt.wantAccess {
				t.Errorf("HasAccess = %v, want %v", got.HasAccess, tt.wantAccess)
			}
			if got.Balance != tt.wantBal {
				t.Errorf("Balance = %v, want %v", got.Balance, tt.wantBal)
			}
			if got.MinimumRequired != 100000 || got.TokenMint != testMint {
				t.Errorf("unexpected status metadata: %+v", got)
			}
		})
	}
}

func TestCheckTokenBalance_SumsToken2022(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTokenAccount(testWallet, solana.TokenAccount{Mint: testMint, UIAmount: 70000})
	rpc.AddProgramTokenAccount(testWallet, solana.Token2022ProgramID, solana.TokenAccount{Mint: testMint, UIAmount: 30000})

	got := NewChecker(rpc, testMint, 100000).CheckTokenBalance(context.Background(), testWallet)
	if !got.HasAccess || got.Balance != 100000 {
		t.Errorf("want access with 100000 across both programs, got %+v", got)
	}

	legacyOnly := NewChecker(rpc, testMint, 100000, WithTokenPrograms(solana.TokenProgramID))
	if got := legacyOnly.CheckTokenBalance(context.Background(), testWallet); got.HasAccess || got.Balance != 70000 {
		t.Errorf("legacy program only: got %+v", got)
	}
}

func TestCheckHolder_OtherMint(t *testing.T) {
	const wsol = "So11111111111111111111111111111111111111112"
	rpc := stub.NewRPCClient()
	rpc.AddTokenAccount(testWallet, solana.TokenAccount{Mint: wsol, UIAmount: 250})
	rpc.AddTokenAccount(testWallet, solana.TokenAccount{Mint: testMint, UIAmount: 1})

	got := NewChecker(rpc, testMint, 100).CheckHolder(context.Background(), testWallet, wsol)
	if !got.HasAccess || got.Balance != 250 || got.TokenMint != wsol {
		t.Errorf("CheckHolder() = %+v", got)
	}
}

func TestCheckTokenBalance_FailsClosed(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTokenAccount(testWallet, solana.TokenAccount{Mint: testMint, UIAmount: 1e9})
	rpc.Err = stub.ErrUnavailable

	got := NewChecker(rpc, testMint, 1).CheckTokenBalance(context.Background(), testWallet)
	if got.HasAccess || got.Balance != 0 {
		t.Errorf("RPC error must deny access, got %+v", got)
	}
}

func TestCheckTokenBalance_InvalidOwner(t *testing.T) {
	rpc := stub.NewRPCClient()
	checker := NewChecker(rpc, testMint, 0)

	for _, owner := range []string{"", "not-a-wallet", "Gd5oUtNMQ5rHG9io17Rv2XdrZ3LGQHQcCqQgD8sSw3GB"} {
		if got := checker.CheckTokenBalance(context.Background(), owner); got.HasAccess {
			t.Errorf("owner %q should not have access", owner)
		}
	}
}

func TestMeetsMinimum(t *testing.T) {
	if !MeetsMinimum(0.1+0.2, 0.3) {
		t.Error("0.1+0.2 should meet 0.3")
	}
	if MeetsMinimum(0.29, 0.3) {
		t.Error("0.29 should not meet 0.3")
	}
	if !MeetsMinimum(0, 0) {
		t.Error("zero minimum is always met")
	}
}
