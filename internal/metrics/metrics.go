// Package metrics exposes Prometheus counters for quote fetching, caching
// and portfolio refreshes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "folio"

// Metrics holds the collectors registered on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	fallbacks        prometheus.Counter
	refreshes        *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	httpRequests     *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound quote provider requests by function and outcome.",
		}, []string{"function", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_quotes_total",
			Help:      "Quotes synthesised locally because the provider returned nothing.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portfolio_refreshes_total",
			Help:      "Portfolio refresh runs by outcome.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "portfolio_refresh_duration_seconds",
			Help:      "Wall time of a portfolio refresh.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.upstreamRequests,
		m.cacheLookups,
		m.fallbacks,
		m.refreshes,
		m.refreshDuration,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UpstreamRequest counts one provider call. outcome is "ok", "empty" or "error".
func (m *Metrics) UpstreamRequest(function, outcome string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(function, outcome).Inc()
}

// CacheLookup counts a hit or miss on the named cache.
func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

// FallbackQuote counts one synthesised quote.
func (m *Metrics) FallbackQuote() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// Refresh records a completed portfolio refresh.
func (m *Metrics) Refresh(seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(seconds)
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(method, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, code).Inc()
}
