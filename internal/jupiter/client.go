// Package jupiter is a client for the Jupiter V6 swap API and the price API.
package jupiter

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
	"nova-arcade/internal/observability"
)

// Default endpoints and per-call timeouts.
const (
	DefaultQuoteURL = "https://quote-api.jup.ag/v6"
	DefaultPriceURL = "https://price.jup.ag/v4"

	DefaultQuoteTimeout = 10 * time.Second
	DefaultSwapTimeout  = 15 * time.Second
	DefaultPriceTimeout = 10 * time.Second
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// ErrInvalidRequest is returned before any request is made when a
// required parameter is missing.
var ErrInvalidRequest = errors.New("invalid request")

// APIError is a non-2xx response from the API.
type APIError struct {
	Op         string // "quote", "swap" or "price"
	StatusCode int
	Message    string // upstream error text, if any
	Code       string // upstream errorCode, if any
	Body       []byte // raw body, truncated
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = strings.TrimSpace(msg + " (" + e.Code + ")")
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, msg)
}

// Client calls the Jupiter HTTP APIs.
type Client struct {
	quoteURL     string
	priceURL     string
	client       *http.Client
	log          slog.Logger
	quoteTimeout time.Duration
	swapTimeout  time.Duration
	now          func() time.Time
}

// Option configures Client.
type Option func(*Client)

// WithQuoteURL sets the quote/swap API base URL.
func WithQuoteURL(u string) Option {
	return func(c *Client) {
		c.quoteURL = strings.TrimRight(u, "/")
	}
}

// WithPriceURL sets the price API base URL.
func WithPriceURL(u string) Option {
	return func(c *Client) {
		c.priceURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeouts overrides the quote and swap timeouts.
func WithTimeouts(quote, swap time.Duration) Option {
	return func(c *Client) {
		c.quoteTimeout = quote
		c.swapTimeout = swap
	}
}

// WithLogger sets the logger.
func WithLogger(log slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new Jupiter client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		quoteURL:     DefaultQuoteURL,
		priceURL:     DefaultPriceURL,
		client:       &http.Client{},
		log:          slog.Disabled,
		quoteTimeout: DefaultQuoteTimeout,
		swapTimeout:  DefaultSwapTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetQuote requests a route for amount (smallest units) of inputMint.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (*domain.Quote, error) {
	if inputMint == "" || outputMint == "" || amount == "" {
		return nil, fmt.Errorf("quote: %w: inputMint, outputMint and amount are required", ErrInvalidRequest)
	}

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", amount)
	params.Set("slippageBps", strconv.Itoa(slippageBps))
	params.Set("onlyDirectRoutes", "false")
	params.Set("asLegacyTransaction", "false")

	start := time.Now()
	body, err := c.do(ctx, "quote", http.MethodGet, c.quoteURL+"/quote?"+params.Encode(), nil, c.quoteTimeout)
	observability.RecordQuote(string(domain.QuoteSourceJupiter), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	q, err := QuoteFromRaw(body)
	if err != nil {
		return nil, err
	}
	q.FetchedAt = c.now().UnixMilli()
	c.log.Debugf("quote %s -> %s: in=%s out=%s impact=%s", inputMint, outputMint, q.InAmount, q.OutAmount, q.PriceImpactPct)
	return q, nil
}

// QuoteFromRaw decodes a quote response and keeps the raw body for the
// swap request.
func QuoteFromRaw(raw json.RawMessage) (*domain.Quote, error) {
	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if q.InputMint == "" || q.OutputMint == "" {
		return nil, fmt.Errorf("decode quote: %w: missing mints", ErrInvalidRequest)
	}
	q.Source = domain.QuoteSourceJupiter
	q.Raw = append(json.RawMessage(nil), raw...)
	return &q, nil
}

// SwapRequest is the body of POST /swap.
type SwapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports"`
}

// GetSwapTransaction builds the unsigned swap transaction for quote.
func (c *Client) GetSwapTransaction(ctx context.Context, quote *domain.Quote, userPubkey string, priorityFee uint64) (*domain.SwapTransaction, error) {
	if quote == nil || userPubkey == "" {
		return nil, fmt.Errorf("swap: %w: quote and userPublicKey are required", ErrInvalidRequest)
	}
	raw := quote.Raw
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(quote); err != nil {
			return nil, fmt.Errorf("encode quote: %w", err)
		}
	}

	req := SwapRequest{
		QuoteResponse:             raw,
		UserPublicKey:             userPubkey,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: priorityFee,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode swap request: %w", err)
	}

	body, err := c.do(ctx, "swap", http.MethodPost, c.quoteURL+"/swap", payload, c.swapTimeout)
	if err != nil {
		return nil, err
	}

	var tx domain.SwapTransaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}
	if tx.SwapTransaction == "" {
		return nil, errors.New("swap response has no transaction")
	}
	return &tx, nil
}

type priceResponse struct {
	Data map[string]struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
	} `json:"data"`
}

// GetPrices returns USD prices by mint. Mints without a price are omitted.
func (c *Client) GetPrices(ctx context.Context, mints []string) (map[string]float64, error) {
	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(mints, ","))
	body, err := c.do(ctx, "price", http.MethodGet, c.priceURL+"/price?"+params.Encode(), nil, DefaultPriceTimeout)
	if err != nil {
		return nil, err
	}

	var resp priceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	prices := make(map[string]float64, len(resp.Data))
	for mint, p := range resp.Data {
		prices[mint] = p.Price
	}
	return prices, nil
}

// do performs one request. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
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
		apiErr := NewAPIError(op, resp.StatusCode, respBody)
		c.log.Warnf("%v", apiErr)
		return nil, apiErr
	}
	return respBody, nil
}

// NewAPIError builds an APIError from a response body.
func NewAPIError(op string, code int, body []byte) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	e := &APIError{Op: op, StatusCode: code, Body: body}

	var parsed struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		e.Message = parsed.Error
		if e.Message == "" {
			e.Message = parsed.Message
		}
		e.Code = parsed.ErrorCode
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
