package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Well-known metric names
const (
	MetricComparisons   = "comparisons_total"
	MetricFetches       = "fetches_total"
	MetricFetchDuration = "fetch_duration"
	MetricCacheHits     = "cache_hits"
	MetricCacheMisses   = "cache_misses"
	MetricBreakerState  = "breaker_state_changes"
	MetricTenantReloads = "tenant_reloads"
	MetricQueryCount    = "query_count"
	MetricQueryErrors   = "query_errors"
	MetricQuerySuccess  = "query_success"
	MetricQueryDuration = "query_duration"
)

// Timer observes the time until Stop is called
type Timer interface {
	Stop()
}

// Recorder is the metrics surface the application layer depends on
type Recorder interface {
	Increment(metric, label string)
	StartTimer(metric, label string) Timer
}

// Collector holds the Prometheus metrics of the service on a private registry
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Comparisons   *prometheus.CounterVec
	Fetches       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	Cache         *prometheus.CounterVec
	BreakerState  *prometheus.CounterVec
	TenantReloads *prometheus.CounterVec

	// Everything without a dedicated series
	Events    *prometheus.CounterVec
	Durations *prometheus.HistogramVec
}

// NewCollector creates a collector; every call gets its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Layout comparisons by outcome",
		}, []string{"status"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Upstream GraphQL fetches, labelled environment_outcome",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream GraphQL fetch duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"environment"}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries dispatched through the query bus",
		}, []string{"query", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query handler duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result",
		}, []string{"cache", "result"}),
		BreakerState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_state_changes_total",
			Help:      "Circuit breaker transitions",
		}, []string{"transition"}),
		TenantReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_reloads_total",
			Help:      "Tenant file reloads by outcome",
		}, []string{"outcome"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Other counted events",
		}, []string{"metric", "label"}),
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Other timed operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric", "label"}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Comparisons,
		c.Fetches,
		c.FetchDuration,
		c.Queries,
		c.QueryDuration,
		c.Cache,
		c.BreakerState,
		c.TenantReloads,
		c.Events,
		c.Durations,
	)
	return c
}

// Increment routes a named counter to its series
func (c *Collector) Increment(metric, label string) {
	switch metric {
	case MetricComparisons:
		c.Comparisons.WithLabelValues(label).Inc()
	case MetricFetches:
		c.Fetches.WithLabelValues(label).Inc()
	case MetricQueryCount:
		c.Queries.WithLabelValues(label, "started").Inc()
	case MetricQueryErrors:
		c.Queries.WithLabelValues(label, "error").Inc()
	case MetricQuerySuccess:
		c.Queries.WithLabelValues(label, "success").Inc()
	case MetricCacheHits:
		c.Cache.WithLabelValues(label, "hit").Inc()
	case MetricCacheMisses:
		c.Cache.WithLabelValues(label, "miss").Inc()
	case MetricBreakerState:
		c.BreakerState.WithLabelValues(label).Inc()
	case MetricTenantReloads:
		c.TenantReloads.WithLabelValues(label).Inc()
	default:
		c.Events.WithLabelValues(metric, label).Inc()
	}
}

// StartTimer starts timing a named operation
func (c *Collector) StartTimer(metric, label string) Timer {
	var obs prometheus.Observer
	switch metric {
	case MetricFetchDuration:
		obs = c.FetchDuration.WithLabelValues(label)
	case MetricQueryDuration:
		obs = c.QueryDuration.WithLabelValues(label)
	default:
		obs = c.Durations.WithLabelValues(metric, label)
	}
	return promTimer{prometheus.NewTimer(obs)}
}

type promTimer struct {
	t *prometheus.Timer
}

func (p promTimer) Stop() {
	p.t.ObserveDuration()
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the registry backing this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Fanout sends every metric to several recorders
type Fanout []Recorder

func (f Fanout) Increment(metric, label string) {
	for _, r := range f {
		r.Increment(metric, label)
	}
}

func (f Fanout) StartTimer(metric, label string) Timer {
	timers := make(multiTimer, 0, len(f))
	for _, r := range f {
		timers = append(timers, r.StartTimer(metric, label))
	}
	return timers
}

type multiTimer []Timer

func (m multiTimer) Stop() {
	for _, t := range m {
		t.Stop()
	}
}

// Nop discards all metrics
type Nop struct{}

func (Nop) Increment(string, string)        {}
func (Nop) StartTimer(string, string) Timer { return nopTimer{} }

type nopTimer struct{}

func (nopTimer) Stop() {}

var _ Recorder = (*Collector)(nil)
