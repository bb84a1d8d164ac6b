// Package metrics defines the Prometheus metric collectors used by the
// search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	DocsIndexedTotal     prometheus.Counter
	DocsRemovedTotal     prometheus.Counter
	DuplicatesRemoved    prometheus.Counter
	NoResultRequests     prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds by execution policy.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"policy"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents added to the index.",
			},
		),
		DocsRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_removed_total",
				Help: "Total documents removed from the index.",
			},
		),
		DuplicatesRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duplicate_docs_removed_total",
				Help: "Total documents removed by duplicate detection.",
			},
		),
		NoResultRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "no_result_requests",
				Help: "Empty-result queries within the sliding request window.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
	}
	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.DocsIndexedTotal,
		m.DocsRemovedTotal,
		m.DuplicatesRemoved,
		m.NoResultRequests,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
