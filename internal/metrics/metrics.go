// Package metrics exposes Prometheus collectors for the HTTP service:
// request counts and latency, rate limiting blocks, cache effectiveness,
// unit fan-out, and LLM token/cost totals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Token direction label values.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// Metrics bundles all collectors on a dedicated registry, so repeated
// construction (tests, multiple servers) cannot cause duplicate
// registration panics.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests by route and status code.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration tracks HTTP latency by route.
	RequestDuration *prometheus.HistogramVec

	// RateLimitBlocksTotal counts requests denied by the rate limiter.
	RateLimitBlocksTotal prometheus.Counter

	// CacheHitsTotal and CacheMissesTotal track analysis cache effectiveness.
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// UnitsDispatchedTotal counts chunks sent to the LLM.
	UnitsDispatchedTotal prometheus.Counter

	// UnitFailuresTotal counts chunks whose analysis failed.
	UnitFailuresTotal prometheus.Counter

	// TokensTotal counts LLM tokens by direction (input/output).
	TokensTotal *prometheus.CounterVec

	// CostUSDTotal accumulates LLM spend in USD.
	CostUSDTotal prometheus.Counter
}

// New creates all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rootcause_requests_total",
			Help: "Total HTTP requests by route and status code.",
		}, []string{"route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rootcause_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		RateLimitBlocksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rootcause_rate_limit_blocks_total",
			Help: "Requests denied by the rate limiter.",
		}),

		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rootcause_cache_hits_total",
			Help: "Analyses served from the result cache.",
		}),

		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rootcause_cache_misses_total",
			Help: "Analyses that required LLM processing.",
		}),

		UnitsDispatchedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rootcause_units_dispatched_total",
			Help: "Document chunks dispatched to the LLM.",
		}),

		UnitFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rootcause_unit_failures_total",
			Help: "Document chunks whose analysis failed.",
		}),

		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rootcause_tokens_total",
			Help: "LLM tokens consumed by direction.",
		}, []string{"direction"}),

		CostUSDTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rootcause_cost_usd_total",
			Help: "Accumulated LLM spend in USD.",
		}),
	}
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
