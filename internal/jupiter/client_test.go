package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nova-arcade/internal/domain"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	solMint  = "So11111111111111111111111111111111111111112"
)

const quoteBody = `{
	"inputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"inAmount": "10000000",
	"outputMint": "So11111111111111111111111111111111111111112",
	"outAmount": "65432100",
	"otherAmountThreshold": "64777779",
	"swapMode": "ExactIn",
	"slippageBps": 100,
	"platformFee": null,
	"priceImpactPct": "0.0012",
	"routePlan": [{"swapInfo": {"ammKey": "amm1", "label": "Whirlpool", "inputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "outputMint": "So11111111111111111111111111111111111111112", "inAmount": "10000000", "outAmount": "65432100"}, "percent": 100}],
	"contextSlot": 250000000,
	"timeTaken": 0.02
}`

func TestGetQuote(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	now := time.UnixMilli(1700000000000)
	c := NewClient(WithQuoteURL(srv.URL + "/"))
	c.now = func() time.Time { return now }

	q, err := c.GetQuote(context.Background(), usdcMint, solMint, "10000000", 100)
	if err != nil {
		t.Fatalf("GetQuote() error: %v", err)
	}

	want := map[string]string{
		"inputMint":           usdcMint,
		"outputMint":          solMint,
		"amount":              "10000000",
		"slippageBps":         "100",
		"onlyDirectRoutes":    "false",
		"asLegacyTransaction": "false",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if q.OutAmount != "65432100" || q.SlippageBps != 100 || q.PriceImpactPct != "0.0012" {
		t.Errorf("unexpected quote: %+v", q)
	}
	if q.Source != domain.QuoteSourceJupiter {
		t.Errorf("Source = %s", q.Source)
	}
	if q.FetchedAt != now.UnixMilli() {
		t.Errorf("FetchedAt = %d", q.FetchedAt)
	}
	if len(q.RoutePlan) != 1 || q.RoutePlan[0].SwapInfo.Label != "Whirlpool" {
		t.Errorf("RoutePlan = %+v", q.RoutePlan)
	}
	if !strings.Contains(string(q.Raw), "platformFee") {
		t.Error("raw body should be kept for the swap request")
	}
}

func TestGetQuote_MissingParams(t *testing.T) {
	c := NewClient(WithQuoteURL("http://127.0.0.1:1"))
	_, err := c.GetQuote(context.Background(), usdcMint, "", "100", 50)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestGetQuote_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"No routes found for the input and output mints","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer srv.Close()

	c := NewClient(WithQuoteURL(srv.URL))
	_, err := c.GetQuote(context.Background(), usdcMint, solMint, "1", 50)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "COULD_NOT_FIND_ANY_ROUTE" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
	msg := err.Error()
	for _, part := range []string{"400", "No routes found", "COULD_NOT_FIND_ANY_ROUTE"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q should contain %q", msg, part)
		}
	}
	if StatusCode(err) != 400 {
		t.Errorf("StatusCode() = %d", StatusCode(err))
	}
}

func TestGetQuote_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(WithQuoteURL(srv.URL)).GetQuote(context.Background(), usdcMint, solMint, "1", 50)
	if StatusCode(err) != http.StatusBadGateway || !strings.Contains(err.Error(), "upstream overloaded") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetQuote_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(WithQuoteURL(srv.URL), WithTimeouts(50*time.Millisecond, time.Second))
	_, err := c.GetQuote(context.Background(), usdcMint, solMint, "1", 50)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Error("network errors carry no status")
	}
}

func TestGetSwapTransaction(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/swap" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.Write([]byte(`{"swapTransaction":"AQID","lastValidBlockHeight":123,"prioritizationFeeLamports":100000}`))
	}))
	defer srv.Close()

	q, err := QuoteFromRaw(json.RawMessage(quoteBody))
	if err != nil {
		t.Fatal(err)
	}

	c := NewClient(WithQuoteURL(srv.URL))
	tx, err := c.GetSwapTransaction(context.Background(), q, "UserPubkey111", 100000)
	if err != nil {
		t.Fatalf("GetSwapTransaction() error: %v", err)
	}
	if tx.SwapTransaction != "AQID" || tx.LastValidBlockHeight != 123 {
		t.Errorf("unexpected tx: %+v", tx)
	}

	checks := map[string]string{
		"userPublicKey":             `"UserPubkey111"`,
		"wrapAndUnwrapSol":          "true",
		"dynamicComputeUnitLimit":   "true",
		"prioritizationFeeLamports": "100000",
	}
	for k, v := range checks {
		if string(got[k]) != v {
			t.Errorf("%s = %s, want %s", k, got[k], v)
		}
	}
	// The upstream quote is echoed back untouched.
	if !strings.Contains(string(got["quoteResponse"]), `"platformFee":null`) {
		t.Errorf("quoteResponse not passed through: %s", got["quoteResponse"])
	}
}

func TestGetSwapTransaction_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	q, _ := QuoteFromRaw(json.RawMessage(quoteBody))
	if _, err := NewClient(WithQuoteURL(srv.URL)).GetSwapTransaction(context.Background(), q, "pk", 0); err == nil {
		t.Error("expected error for response without transaction")
	}
}

func TestGetPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ids := r.URL.Query().Get("ids"); ids != usdcMint+","+solMint {
			t.Errorf("ids = %q", ids)
		}
		w.Write([]byte(`{"data":{"` + solMint + `":{"id":"` + solMint + `","price":152.5},"` + usdcMint + `":{"id":"` + usdcMint + `","price":1.0001}}}`))
	}))
	defer srv.Close()

	prices, err := NewClient(WithPriceURL(srv.URL)).GetPrices(context.Background(), []string{usdcMint, solMint})
	if err != nil {
		t.Fatalf("GetPrices() error: %v", err)
	}
	if prices[solMint] != 152.5 || prices[usdcMint] != 1.0001 {
		t.Errorf("unexpected prices: %v", prices)
	}
}

func TestGetPrices_Empty(t *testing.T) {
	prices, err := NewClient(WithPriceURL("http://127.0.0.1:1")).GetPrices(context.Background(), nil)
	if err != nil || len(prices) != 0 {
		t.Errorf("GetPrices(nil) = %v, %v", prices, err)
	}
}
