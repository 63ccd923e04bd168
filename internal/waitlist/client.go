// Package waitlist handles Battle Arena waitlist signups: the submission
// client with its offline fallback, the server-side service, and reports.
package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/storage"
)

// DefaultTimeout bounds one submission request.
const DefaultTimeout = 10 * time.Second

// OfflineSuffix marks entries kept by the local fallback.
const OfflineSuffix = " (Offline)"

// ErrInvalidEmail is returned for addresses without '@'.
var ErrInvalidEmail = errors.New("invalid email address")

// StatusError is an unexpected response from the waitlist endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("waitlist: HTTP %d: %s", e.StatusCode, e.Body)
}

// Request is the JSON body posted to the endpoint.
type Request struct {
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	Source        string `json:"source"`
}

// Client submits signups to the backend. When the backend cannot be
// reached the entry is kept in the fallback store instead.
type Client struct {
	endpoint string
	client   *http.Client
	fallback storage.WaitlistStore
	log      slog.Logger
	now      func() time.Time
}

// Option configures Client.
type Option func(*Client)

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

// NewClient creates a client posting to endpoint. fallback may be nil,
// in which case network failures are returned as errors.
func NewClient(endpoint string, fallback storage.WaitlistStore, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		fallback: fallback,
		log:      slog.Disabled,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts a signup. 409 means the email is already listed. A network
// failure stores the entry locally, where duplicates are detected by exact
// email match.
func (c *Client) Submit(ctx context.Context, email, walletAddress, source string) (domain.WaitlistOutcome, error) {
	outcome, err := c.submit(ctx, email, walletAddress, source)
	observability.RecordWaitlist(string(outcome))
	return outcome, err
}

func (c *Client) submit(ctx context.Context, email, walletAddress, source string) (domain.WaitlistOutcome, error) {
	if !ValidEmail(email) {
		return domain.WaitlistError, ErrInvalidEmail
	}

	payload, err := json.Marshal(Request{Email: email, WalletAddress: walletAddress, Source: source})
	if err != nil {
		return domain.WaitlistError, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.WaitlistError, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.WaitlistError, ctx.Err()
		}
		c.log.Warnf("waitlist endpoint unreachable, saving locally: %v", err)
		return c.saveOffline(ctx, email, walletAddress, source)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.log.Infof("%s joined the waitlist", email)
		return domain.WaitlistSuccess, nil
	case resp.StatusCode == http.StatusConflict:
		return domain.WaitlistDuplicate, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WaitlistError, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
}

func (c *Client) saveOffline(ctx context.Context, email, walletAddress, source string) (domain.WaitlistOutcome, error) {
	if c.fallback == nil {
		return domain.WaitlistError, errors.New("waitlist endpoint unreachable and no local store")
	}
	if walletAddress == "" {
		walletAddress = domain.NotConnectedWallet
	}

	entry := &domain.WaitlistEntry{
		ID:            uuid.NewString(),
		Email:         email,
		WalletAddress: walletAddress,
		Source:        source + OfflineSuffix,
		Timestamp:     c.now().UnixMilli(),
	}
	err := c.fallback.Insert(ctx, entry)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		return domain.WaitlistDuplicate, nil
	case err != nil:
		return domain.WaitlistError, fmt.Errorf("save offline entry: %w", err)
	}
	return domain.WaitlistSuccess, nil
}

// ValidEmail applies the client-side check: non-empty and contains '@'.
func ValidEmail(email string) bool {
	return strings.Contains(strings.TrimSpace(email), "@")
}
