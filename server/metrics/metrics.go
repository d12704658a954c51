// Package metrics holds the Prometheus collectors shared by the API service
// and the model server. Each Metrics value owns its own registry so tests
// can build as many as they need.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream call outcomes recorded by UpstreamRequests.
const (
	OutcomeSuccess         = "success"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeUnavailable     = "unavailable"
	OutcomeInvalidResponse = "invalid_response"
	OutcomeBackendError    = "backend_error"
	OutcomeNotImplemented  = "not_implemented"
)

// Metrics encapsulates Prometheus metrics for one service process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec
	RateLimitHits   prometheus.Counter

	// API service → model server
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration prometheus.Histogram

	// model server → backend
	Generations     *prometheus.CounterVec
	GeneratedTokens *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with a custom registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nanocode_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nanocode_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "nanocode_http_active_requests",
				Help: "Number of HTTP requests currently being served",
			},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nanocode_errors_total",
				Help: "Total number of error responses by class",
			},
			[]string{"type"},
		),
		RateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nanocode_rate_limit_hits_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nanocode_upstream_requests_total",
				Help: "Calls to the model server by outcome",
			},
			[]string{"outcome"},
		),
		UpstreamDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nanocode_upstream_request_duration_seconds",
				Help:    "Latency of calls to the model server",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
		),
		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nanocode_generations_total",
				Help: "Generation requests handled by the model server by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		GeneratedTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nanocode_tokens_total",
				Help: "Tokens counted for prompts and completions by backend",
			},
			[]string{"backend", "kind"},
		),
	}

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m.RequestsTotal.WithLabelValues("/health", "200").Add(0)

	return m
}

// Registry exposes the underlying registry so other components (the
// circuit breaker) can register their collectors next to ours.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}
