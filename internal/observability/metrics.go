// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Gate metrics
	TrialDecisions  *prometheus.CounterVec
	TrialsConsumed  prometheus.Counter
	TokenGateChecks *prometheus.CounterVec
	GateStoreErrors prometheus.Counter

	// Swap metrics
	QuotesRequested *prometheus.CounterVec
	QuoteLatency    *prometheus.HistogramVec
	SwapsSubmitted  *prometheus.CounterVec
	ConfirmLatency  prometheus.Histogram
	RouterDecisions *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Waitlist / arena metrics
	WaitlistSubmissions *prometheus.CounterVec
	DemoEntries         *prometheus.CounterVec

	// Bot metrics
	BotUpdates       *prometheus.CounterVec
	SessionsIssued   prometheus.Counter
	SessionsVerified *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimited         *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	StartTime prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer), namespace)
}

// NewMetricsWithRegistry registers the metrics on reg instead of the
// default registerer.
func NewMetricsWithRegistry(reg prometheus.Registerer, namespace string) *Metrics {
	return newMetrics(promauto.With(reg), namespace)
}

func newMetrics(f promauto.Factory, namespace string) *Metrics {
	if namespace == "" {
		namespace = "nova_arcade"
	}

	return &Metrics{
		// Gate metrics
		TrialDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "trial_decisions_total",
			Help:      "Trial gate decisions by access level",
		}, []string{"access_level"}),
		TrialsConsumed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "trials_consumed_total",
			Help:      "Total number of free trials consumed",
		}),
		TokenGateChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "token_checks_total",
			Help:      "Token balance checks by result",
		}, []string{"result"}),
		GateStoreErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "store_errors_total",
			Help:      "Trial store errors that were failed open",
		}),

		// Swap metrics
		QuotesRequested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "quotes_total",
			Help:      "Quote requests by source and status",
		}, []string{"source", "status"}),
		QuoteLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "quote_latency_seconds",
			Help:      "Quote latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		SwapsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "swaps_total",
			Help:      "Swap executions by source and status",
		}, []string{"source", "status"}),
		ConfirmLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "confirm_latency_seconds",
			Help:      "Time from submission to confirmed commitment",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		RouterDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "router_decisions_total",
			Help:      "Bonding-curve router decisions",
		}, []string{"route"}),

		// Latency metrics
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Waitlist / arena metrics
		WaitlistSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waitlist",
			Name:      "submissions_total",
			Help:      "Waitlist submissions by outcome",
		}, []string{"outcome"}),
		DemoEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arena",
			Name:      "demo_entries_total",
			Help:      "Battle arena demo entries by mode",
		}, []string{"mode"}),

		// Bot metrics
		BotUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Telegram updates handled by kind",
		}, []string{"kind"}),
		SessionsIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "sessions_issued_total",
			Help:      "Play session tokens issued",
		}),
		SessionsVerified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "sessions_verified_total",
			Help:      "Play session validations by result",
		}, []string{"valid"}),

		// HTTP metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"route"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		StartTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "start_time_seconds",
			Help:      "Unix timestamp of process start",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTrialDecision records a trial gate decision.
func RecordTrialDecision(accessLevel string) {
	DefaultMetrics.TrialDecisions.WithLabelValues(accessLevel).Inc()
}

// RecordTrialConsumed increments the consumed trials counter.
func RecordTrialConsumed() {
	DefaultMetrics.TrialsConsumed.Inc()
}

// RecordTokenCheck records a token balance check result
// ("access", "no_access" or "error").
func RecordTokenCheck(result string) {
	DefaultMetrics.TokenGateChecks.WithLabelValues(result).Inc()
}

// RecordGateStoreError records a trial store error.
func RecordGateStoreError() {
	DefaultMetrics.GateStoreErrors.Inc()
}

// RecordQuote records a quote request.
func RecordQuote(source string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.QuotesRequested.WithLabelValues(source, status).Inc()
	DefaultMetrics.QuoteLatency.WithLabelValues(source).Observe(seconds)
}

// RecordSwap records a swap execution.
func RecordSwap(source string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.SwapsSubmitted.WithLabelValues(source, status).Inc()
}

// RecordConfirmLatency records time to confirmation.
func RecordConfirmLatency(seconds float64) {
	DefaultMetrics.ConfirmLatency.Observe(seconds)
}

// RecordRoute records a bonding-curve router decision.
func RecordRoute(route string) {
	DefaultMetrics.RouterDecisions.WithLabelValues(route).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSMessage records WebSocket message handling latency.
func RecordWSMessage(seconds float64) {
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}

// RecordWaitlist records a waitlist submission outcome.
func RecordWaitlist(outcome string) {
	DefaultMetrics.WaitlistSubmissions.WithLabelValues(outcome).Inc()
}

// RecordDemoEntry records a battle arena demo entry.
func RecordDemoEntry(mode string) {
	DefaultMetrics.DemoEntries.WithLabelValues(mode).Inc()
}

// RecordBotUpdate records a handled Telegram update.
func RecordBotUpdate(kind string) {
	DefaultMetrics.BotUpdates.WithLabelValues(kind).Inc()
}

// RecordSessionIssued increments the issued sessions counter.
func RecordSessionIssued() {
	DefaultMetrics.SessionsIssued.Inc()
}

// RecordSessionVerified records a session validation.
func RecordSessionVerified(valid bool) {
	label := "false"
	if valid {
		label = "true"
	}
	DefaultMetrics.SessionsVerified.WithLabelValues(label).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, statusLabel(code)).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited(route string) {
	DefaultMetrics.RateLimited.WithLabelValues(route).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetStartTime records the process start timestamp.
func SetStartTime(unix int64) {
	DefaultMetrics.StartTime.Set(float64(unix))
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
