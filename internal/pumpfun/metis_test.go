package pumpfun

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/jupiter"
)

const (
	nagMint  = "957tKDz9GKtY3X54WuJUkhYfnNJsrAoyQQZpMjS1pump"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	solMint  = "So11111111111111111111111111111111111111112"
	testKey  = "qn-test-key"
)

func newMetisServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != testKey {
			t.Errorf("x-api-key = %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUnconfigured(t *testing.T) {
	c := NewClient("")
	ctx := context.Background()

	if c.Configured() {
		t.Error("client without key should not be configured")
	}
	if _, err := c.GetQuote(ctx, solMint, nagMint, "1000", 100); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("GetQuote() = %v, want ErrNoAPIKey", err)
	}
	if err := ErrNoAPIKey.Error(); err != "Metis API key required for Pump.fun quotes" {
		t.Errorf("unexpected message %q", err)
	}
	if _, err := c.TokenInfo(ctx, nagMint); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("TokenInfo() = %v", err)
	}
	if _, err := c.GetSwapTransaction(ctx, &domain.Quote{Raw: []byte("{}")}, "pk", 0); !errors.Is(err, ErrNoAPIKeySwap) {
		t.Errorf("GetSwapTransaction() = %v", err)
	}
}

func TestTokenInfo(t *testing.T) {
	srv := newMetisServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token/"+nagMint {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"mint":"` + nagMint + `","symbol":"NAG","bondingCurve":{"active":true,"progress":"42.1"}}`))
	})

	info, err := NewClient(testKey, WithURL(srv.URL)).TokenInfo(context.Background(), nagMint)
	if err != nil {
		t.Fatalf("TokenInfo() error: %v", err)
	}
	if !info.BondingCurve.Active || info.Symbol != "NAG" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestGetQuote(t *testing.T) {
	srv := newMetisServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("inputMint") != solMint || q.Get("outputMint") != nagMint || q.Get("amount") != "1000000" || q.Get("slippageBps") != "100" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"inputMint":"` + solMint + `","outputMint":"` + nagMint + `","inAmount":"1000000","outAmount":"35000000000","feeAmount":"10000","priceImpactPct":"0.3","slippageBps":100,"bondingCurvePrice":"0.0000285"}`))
	})

	q, err := NewClient(testKey, WithURL(srv.URL)).GetQuote(context.Background(), solMint, nagMint, "1000000", 100)
	if err != nil {
		t.Fatalf("GetQuote() error: %v", err)
	}
	if q.Source != domain.QuoteSourcePumpFun || q.OutAmount != "35000000000" || q.SlippageBps != 100 {
		t.Errorf("unexpected quote: %+v", q)
	}
	if !strings.Contains(string(q.Raw), "bondingCurvePrice") {
		t.Error("raw Metis quote should be kept")
	}
}

func TestGetQuote_APIError(t *testing.T) {
	srv := newMetisServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Token not found"}`))
	})

	_, err := NewClient(testKey, WithURL(srv.URL)).GetQuote(context.Background(), solMint, nagMint, "1", 100)
	if jupiter.StatusCode(err) != http.StatusNotFound || !strings.Contains(err.Error(), "Token not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetSwapTransaction(t *testing.T) {
	var got map[string]json.RawMessage
	srv := newMetisServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"transaction":"AQID","lastValidBlockHeight":99}`))
	})

	quote := &domain.Quote{Source: domain.QuoteSourcePumpFun, Raw: json.RawMessage(`{"inAmount":"1"}`)}
	tx, err := NewClient(testKey, WithURL(srv.URL)).GetSwapTransaction(context.Background(), quote, "UserPk", 5000)
	if err != nil {
		t.Fatalf("GetSwapTransaction() error: %v", err)
	}
	if tx.SwapTransaction != "AQID" || tx.LastValidBlockHeight != 99 || tx.PrioritizationFeeLamports != 5000 {
		t.Errorf("unexpected tx: %+v", tx)
	}
	if string(got["quoteResponse"]) != `{"inAmount":"1"}` || string(got["wrapAndUnwrapSol"]) != "true" {
		t.Errorf("unexpected body: %v", got)
	}
	if _, ok := got["dynamicComputeUnitLimit"]; ok {
		t.Error("Metis swap body must not carry dynamicComputeUnitLimit")
	}
}

func TestBondingCurveAddress(t *testing.T) {
	tests := []struct {
		mint string
		want string
	}{
		{nagMint, "Gd5oUtNMQ5rHG9io17Rv2XdrZ3LGQHQcCqQgD8sSw3GB"},
		{usdcMint, "8Rr2Qo9ch94zRZxojHfg7Xeq8DfAp9mfNaLZnQScnpbA"},
	}
	for _, tt := range tests {
		got, err := BondingCurveAddress(tt.mint)
		if err != nil {
			t.Fatalf("BondingCurveAddress(%s) error: %v", tt.mint, err)
		}
		if got.String() != tt.want {
			t.Errorf("BondingCurveAddress(%s) = %s, want %s", tt.mint, got, tt.want)
		}
		if got.IsOnCurve() {
			t.Errorf("%s must be off curve", got)
		}
	}

	if _, err := BondingCurveAddress("not-a-mint"); err == nil {
		t.Error("expected error for invalid mint")
	}
}
