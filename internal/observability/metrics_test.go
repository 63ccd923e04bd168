package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg, "test")

	m.TrialDecisions.WithLabelValues("trial").Inc()
	m.TrialDecisions.WithLabelValues("trial").Inc()
	m.QuotesRequested.WithLabelValues("jupiter", "error").Inc()

	if got := testutil.ToFloat64(m.TrialDecisions.WithLabelValues("trial")); got != 2 {
		t.Errorf("trial decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.QuotesRequested.WithLabelValues("jupiter", "error")); got != 1 {
		t.Errorf("quote errors = %v, want 1", got)
	}

	count, err := testutil.GatherAndCount(reg, "test_gate_trial_decisions_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Errorf("series = %d, want 1", count)
	}
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.SwapsSubmitted.WithLabelValues("pumpfun", "error"))
	RecordSwap("pumpfun", errors.New("boom"))
	after := testutil.ToFloat64(DefaultMetrics.SwapsSubmitted.WithLabelValues("pumpfun", "error"))
	if after-before != 1 {
		t.Errorf("swap error counter delta = %v, want 1", after-before)
	}

	before = testutil.ToFloat64(DefaultMetrics.HTTPRequests.WithLabelValues("/api/test", "4xx"))
	RecordHTTPRequest("/api/test", 429, 0.01)
	after = testutil.ToFloat64(DefaultMetrics.HTTPRequests.WithLabelValues("/api/test", "4xx"))
	if after-before != 1 {
		t.Errorf("http 4xx delta = %v, want 1", after-before)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 302: "3xx", 404: "4xx", 503: "5xx"}
	for code, want := range tests {
		if got := statusLabel(code); got != want {
			t.Errorf("statusLabel(%d) = %q, want %q", code, got, want)
		}
	}
}
