// Package metrics provides Prometheus metrics for the PagerDuty MCP server.
// It tracks tool calls, PagerDuty API traffic, pagination and envelope limits.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "pagerduty_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures request latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing requests
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// APILatency measures PagerDuty API call latency by resource
	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "api_latency_seconds",
		Help:      "PagerDuty API call latency by resource",
		Buckets:   prometheus.DefBuckets,
	}, []string{"resource"})

	// APIRequestsTotal counts PagerDuty API requests
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_requests_total",
		Help:      "Total PagerDuty API requests by resource and HTTP status code",
	}, []string{"resource", "code"})

	// PagesFetched counts list pages fetched while following pagination
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_pages_fetched_total",
		Help:      "List pages fetched from PagerDuty by resource",
	}, []string{"resource"})

	// RateLimitWaits counts requests that had to wait for the outbound rate limiter
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Outbound requests delayed by the rate limiter",
	})

	// CircuitState exposes the circuit breaker state (0 closed, 1 open, 2 half-open)
	CircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "circuit_breaker_state",
		Help:      "PagerDuty API circuit breaker state: 0 closed, 1 open, 2 half-open",
	})

	// LimitExceeded counts envelopes returned with LIMIT_EXCEEDED
	LimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "envelope_limit_exceeded_total",
		Help:      "Responses whose result count exceeded the envelope limit, by resource",
	}, []string{"resource"})
)

// RecordRequest records a completed request with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(tool, status).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records a PagerDuty API call. A statusCode of 0 means the
// request never produced a response.
func RecordAPICall(resource string, duration float64, statusCode int) {
	code := "none"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	APIRequestsTotal.WithLabelValues(resource, code).Inc()
	APILatency.WithLabelValues(resource).Observe(duration)
}

// RecordLimitExceeded records an envelope that tripped its result limit
func RecordLimitExceeded(resource string) {
	LimitExceeded.WithLabelValues(resource).Inc()
}

// SetCircuitState updates the circuit breaker gauge
func SetCircuitState(state int) {
	CircuitState.Set(float64(state))
}
