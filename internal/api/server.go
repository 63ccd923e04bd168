// Package api serves the arcade HTTP API: the Jupiter proxy, wallet
// sign-in, the trial gate, the Battle Arena waitlist and demo, and the
// activity feed.
package api

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"golang.org/x/time/rate"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/arena"
	"nova-arcade/internal/auth"
	"nova-arcade/internal/config"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/swap"
	"nova-arcade/internal/tokengate"
	"nova-arcade/internal/trial"
	"nova-arcade/internal/waitlist"
)

// DefaultSlippageBps is used when a quote request names none.
const DefaultSlippageBps = 100

// DefaultActivityLimit is the feed size when no limit is given.
const DefaultActivityLimit = 20

const maxActivityLimit = 100

// Deps are the services behind the API. Nil services disable their routes.
type Deps struct {
	Quoter   swap.Quoter
	Builder  swap.TxBuilder
	Prices   swap.PriceSource
	Tracker  *swap.PriceTracker
	Catalog  *config.Catalog
	Gate     *trial.Gate
	Tokens   *tokengate.Checker
	Waitlist *waitlist.Service
	Demo     *arena.Demo
	Auth     *auth.Service
	Activity *activity.Recorder
}

// Server is the HTTP API.
type Server struct {
	deps        Deps
	adminSecret string
	priorityFee uint64
	limiter     *rate.Limiter
	log         slog.Logger
	start       time.Time
	requests    atomic.Int64

	handler http.Handler
}

// Option configures Server.
type Option func(*Server)

// WithAdminSecret sets the key required by admin routes. Admin routes
// reject every request when it is empty.
func WithAdminSecret(secret string) Option {
	return func(s *Server) {
		s.adminSecret = secret
	}
}

// WithPriorityFee sets the default prioritization fee for swaps.
func WithPriorityFee(lamports uint64) Option {
	return func(s *Server) {
		s.priorityFee = lamports
	}
}

// WithRateLimit limits the Jupiter proxy to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(log slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer creates the API server and builds its routes.
func NewServer(deps Deps, opts ...Option) *Server {
	s := &Server{
		deps:        deps,
		priorityFee: swap.DefaultPriorityFee,
		log:         slog.Disabled,
		start:       time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.deps.Catalog == nil {
		s.deps.Catalog = config.DefaultCatalog("")
	}
	s.handler = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}

	// Jupiter proxy
	handle("GET /api/jupiter/quote", s.limit("quote", s.handleQuote))
	handle("POST /api/jupiter/swap", s.limit("swap", s.handleSwap))
	handle("GET /api/jupiter/price/{mint}", s.limit("price", s.handlePrice))
	handle("GET /api/jupiter/tokens", s.handleTokens)

	// Auth
	handle("POST /api/auth/challenge", s.handleChallenge)
	handle("POST /api/auth/nonce", s.handleNonce)
	handle("POST /api/auth/verify", s.handleVerify)

	// Trial gate
	handle("GET /api/gate/status", s.handleGateStatus)
	handle("POST /api/gate/trial", s.handleUseTrial)
	handle("GET /api/balance/check/{chain}/{address}/{token}", s.handleBalanceCheck)

	// Battle Arena
	handle("POST /api/battle-arena/waitlist", s.handleWaitlistJoin)
	handle("GET /api/battle-arena/admin/waitlist", s.handleWaitlistAdmin)
	handle("GET /api/waitlist/stats", s.handleWaitlistStats)
	handle("POST /api/battle-arena/demo/enter", s.requireAuth(s.handleDemoEnter))
	handle("GET /api/battle-arena/demo/stats", s.handleDemoStats)
	handle("GET /api/battle-arena/demo/history", s.requireAuth(s.handleDemoHistory))

	handle("GET /api/activity", s.handleActivity)

	// Health
	handle("GET /health", s.handleHealth)
	handle("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", observability.Handler())

	return mux
}

// instrument records request metrics and disables caching of API
// responses.
func (s *Server) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.requests.Add(1)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store")
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		observability.RecordHTTPRequest(route, rec.status, time.Since(start).Seconds())
		s.log.Tracef("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// limit applies the shared upstream rate limit.
func (s *Server) limit(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			observability.RecordRateLimited(name)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response of /status.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	StartedAt    time.Time `json:"started_at"`
	Requests     int64     `json:"requests"`
	PricesAt     time.Time `json:"prices_updated_at,omitempty"`
	PricesCached int       `json:"prices_cached"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.start).Round(time.Second).String(),
		StartedAt: s.start,
		Requests:  s.requests.Load(),
	}
	if s.deps.Tracker != nil {
		prices, at := s.deps.Tracker.Prices()
		resp.PricesCached = len(prices)
		resp.PricesAt = at
	}
	writeJSON(w, http.StatusOK, resp)
}
