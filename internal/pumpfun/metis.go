// Package pumpfun talks to the pump.fun Metis API, which quotes and builds
// swaps for tokens still trading on their bonding curve.
package pumpfun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/jupiter"
	"nova-arcade/internal/observability"
)

// Defaults.
const (
	DefaultURL = "https://pumpfun-api.quicknode.com/v1"

	DefaultTokenTimeout = 5 * time.Second
	DefaultQuoteTimeout = 10 * time.Second
	DefaultSwapTimeout  = 15 * time.Second
)

var (
	// ErrNoAPIKey is returned by quote calls when no Metis key is configured.
	ErrNoAPIKey = errors.New("Metis API key required for Pump.fun quotes")

	// ErrNoAPIKeySwap is returned by swap calls when no Metis key is configured.
	ErrNoAPIKeySwap = errors.New("Metis API key required for Pump.fun swaps")
)

// TokenInfo is the subset of GET /token/{mint} the router needs.
type TokenInfo struct {
	Mint         string       `json:"mint"`
	Name         string       `json:"name,omitempty"`
	Symbol       string       `json:"symbol,omitempty"`
	BondingCurve BondingCurve `json:"bondingCurve"`
}

// BondingCurve describes the curve state of a token.
type BondingCurve struct {
	Active   bool   `json:"active"`
	Progress string `json:"progress,omitempty"`
}

// QuoteResponse is the Metis quote body.
type QuoteResponse struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	FeeAmount            string `json:"feeAmount"`
	PriceImpactPct       string `json:"priceImpactPct"`
	SlippageBps          int    `json:"slippageBps"`
	BondingCurvePrice    string `json:"bondingCurvePrice"`
	MarketCap            string `json:"marketCap"`
	VirtualSolReserves   string `json:"virtualSolReserves"`
	VirtualTokenReserves string `json:"virtualTokenReserves"`
	RealSolReserves      string `json:"realSolReserves"`
	RealTokenReserves    string `json:"realTokenReserves"`
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	Transaction          string `json:"transaction"`
	Signature            string `json:"signature,omitempty"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// Client calls the Metis API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     slog.Logger
	now     func() time.Time
}

// Option configures Client.
type Option func(*Client)

// WithURL sets the API base URL.
func WithURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(log slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Metis client. An empty apiKey leaves the client
// unconfigured: every call fails with ErrNoAPIKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultURL,
		apiKey:  apiKey,
		client:  &http.Client{},
		log:     slog.Disabled,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// TokenInfo fetches the bonding-curve state of mint.
func (c *Client) TokenInfo(ctx context.Context, mint string) (*TokenInfo, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}
	body, err := c.do(ctx, "metis token", http.MethodGet, c.baseURL+"/token/"+url.PathEscape(mint), nil, DefaultTokenTimeout)
	if err != nil {
		return nil, err
	}
	var info TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode token info: %w", err)
	}
	return &info, nil
}

// GetQuote requests a bonding-curve quote.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (*domain.Quote, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", amount)
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	start := time.Now()
	body, err := c.do(ctx, "metis quote", http.MethodGet, c.baseURL+"/quote?"+params.Encode(), nil, DefaultQuoteTimeout)
	observability.RecordQuote(string(domain.QuoteSourcePumpFun), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	var pq QuoteResponse
	if err := json.Unmarshal(body, &pq); err != nil {
		return nil, fmt.Errorf("decode metis quote: %w", err)
	}

	c.log.Debugf("metis quote %s -> %s: in=%s out=%s price=%s", inputMint, outputMint, pq.InAmount, pq.OutAmount, pq.BondingCurvePrice)
	return &domain.Quote{
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       pq.InAmount,
		OutAmount:      pq.OutAmount,
		SwapMode:       "ExactIn",
		SlippageBps:    slippageBps,
		PriceImpactPct: pq.PriceImpactPct,
		Source:         domain.QuoteSourcePumpFun,
		FetchedAt:      c.now().UnixMilli(),
		Raw:            append(json.RawMessage(nil), body...),
	}, nil
}

// GetSwapTransaction builds the unsigned swap transaction for a Metis quote.
func (c *Client) GetSwapTransaction(ctx context.Context, quote *domain.Quote, userPubkey string, priorityFee uint64) (*domain.SwapTransaction, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKeySwap
	}
	if quote == nil || len(quote.Raw) == 0 || userPubkey == "" {
		return nil, fmt.Errorf("metis swap: %w: quote and userPublicKey are required", jupiter.ErrInvalidRequest)
	}

	payload, err := json.Marshal(swapRequest{
		QuoteResponse:             quote.Raw,
		UserPublicKey:             userPubkey,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: priorityFee,
	})
	if err != nil {
		return nil, fmt.Errorf("encode swap request: %w", err)
	}

	body, err := c.do(ctx, "metis swap", http.MethodPost, c.baseURL+"/swap", payload, DefaultSwapTimeout)
	if err != nil {
		return nil, err
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode metis swap: %w", err)
	}
	if resp.Transaction == "" {
		return nil, errors.New("metis swap response has no transaction")
	}
	return &domain.SwapTransaction{
		SwapTransaction:           resp.Transaction,
		LastValidBlockHeight:      resp.LastValidBlockHeight,
		PrioritizationFeeLamports: priorityFee,
	}, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload []byte, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, jupiter.NewAPIError(op, resp.StatusCode, respBody)
	}
	return respBody, nil
}
