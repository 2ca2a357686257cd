package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Trade attempt metrics
	AttemptsTotal      *prometheus.CounterVec
	AttemptTransitions *prometheus.CounterVec
	AttemptDuration    *prometheus.HistogramVec

	// Wallet metrics
	WalletRequestsTotal   *prometheus.CounterVec
	WalletRequestDuration *prometheus.HistogramVec

	// Confirmation polling
	ReceiptPollOutcomes *prometheus.CounterVec
	ReceiptPollAttempts prometheus.Histogram

	// Backend HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics on a dedicated registry so several
// instances can coexist in one process.
func NewMetrics(namespace, service string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "attempts_total",
				Help:      "Total number of trade attempts by kind and terminal state",
			},
			[]string{"kind", "state"},
		),
		AttemptTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "attempt_transitions_total",
				Help:      "Total number of attempt state transitions",
			},
			[]string{"kind", "state"},
		),
		AttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "attempt_duration_seconds",
				Help:      "Trade attempt durations in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),

		WalletRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "wallet_requests_total",
				Help:      "Total number of wallet provider requests",
			},
			[]string{"method", "status"},
		),
		WalletRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "wallet_request_duration_seconds",
				Help:      "Wallet provider request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		ReceiptPollOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "receipt_polls_total",
				Help:      "Receipt polls by outcome",
			},
			[]string{"outcome"},
		),
		ReceiptPollAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "receipt_poll_attempts",
				Help:      "Number of receipt lookups per poll",
				Buckets:   []float64{1, 2, 5, 10, 20, 40, 60},
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "http_requests_total",
				Help:      "Total number of outgoing HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "http_request_duration_seconds",
				Help:      "Outgoing HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache_name"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache_name"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"kind", "code"},
		),
	}
}

// RecordTransition counts a state change of an attempt.
func (m *Metrics) RecordTransition(kind, state string) {
	if m == nil {
		return
	}
	m.AttemptTransitions.WithLabelValues(kind, state).Inc()
}

// RecordAttempt records a finished attempt.
func (m *Metrics) RecordAttempt(kind, state string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(kind, state).Inc()
	m.AttemptDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordWalletRequest records a provider call.
func (m *Metrics) RecordWalletRequest(method string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.WalletRequestsTotal.WithLabelValues(method, status).Inc()
	m.WalletRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordReceiptPoll records how a confirmation poll ended.
func (m *Metrics) RecordReceiptPoll(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.ReceiptPollOutcomes.WithLabelValues(outcome).Inc()
	m.ReceiptPollAttempts.Observe(float64(attempts))
}

// RecordHTTPRequest records an outgoing HTTP call.
func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cacheName string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cacheName).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cacheName).Inc()
	}
}

// RecordError counts a terminal error by code.
func (m *Metrics) RecordError(kind, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind, code).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
