// Package metrics provides Prometheus metrics for the odds service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects and exposes odds-service Prometheus metrics.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	MarketTrials     *prometheus.CounterVec
	PersistFailures  *prometheus.CounterVec
	MergedMatches    *prometheus.GaugeVec
}

// New creates a metrics collector with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skybet_provider_requests_total",
				Help: "Odds provider calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skybet_provider_request_duration_seconds",
				Help:    "Odds provider call latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"endpoint"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skybet_cache_lookups_total",
				Help: "Cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		MarketTrials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skybet_market_trials_total",
				Help: "Per-market bookmaker group trials by final state",
			},
			[]string{"sport", "state"},
		),
		PersistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skybet_persist_failures_total",
				Help: "Best-effort persistence failures by sink",
			},
			[]string{"sink"},
		),
		MergedMatches: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "skybet_merged_matches",
				Help: "Matches in the latest merged snapshot per sport",
			},
			[]string{"sport"},
		),
	}

	m.registry.MustRegister(
		m.ProviderRequests,
		m.ProviderLatency,
		m.CacheLookups,
		m.MarketTrials,
		m.PersistFailures,
		m.MergedMatches,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordProviderCall records one provider call
func (m *Metrics) RecordProviderCall(endpoint string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	m.ProviderLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordCacheLookup records a cache hit or miss for a payload kind
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordMarketTrial records the final state of one market trial
func (m *Metrics) RecordMarketTrial(sport, state string) {
	if m == nil {
		return
	}
	m.MarketTrials.WithLabelValues(sport, state).Inc()
}

// RecordPersistFailure records a swallowed persistence error
func (m *Metrics) RecordPersistFailure(sink string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(sink).Inc()
}

// SetMergedMatches records the size of the latest merged snapshot
func (m *Metrics) SetMergedMatches(sport string, n int) {
	if m == nil {
		return
	}
	m.MergedMatches.WithLabelValues(sport).Set(float64(n))
}
