package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
// Using promauto automatically registers metrics with the default registry

var (
	// ==================== HTTP METRICS ====================

	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsTotal counts total HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsInFlight tracks currently processing requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// ==================== CACHE METRICS ====================

	// CacheHitsTotal counts product cache hits
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMissesTotal counts product cache misses
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheOperationDuration tracks cache operation latency
	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"operation"}, // get, set
	)

	// ==================== CATALOG METRICS ====================

	// CatalogRequestDuration tracks calls to the external product source
	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Duration of external catalog requests in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "outcome"},
	)

	// MetadataFallbacksTotal counts first visits logged with placeholder metadata
	MetadataFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metadata_fallbacks_total",
			Help: "Total number of log entries created with placeholder metadata",
		},
	)

	// ==================== BUSINESS METRICS ====================

	// ViewsRecordedTotal counts upsert attempts by outcome
	ViewsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "views_recorded_total",
			Help: "Total number of product views recorded",
		},
		[]string{"outcome"}, // created, incremented, failed
	)

	// ViewsSuppressedTotal counts detail renders skipped by the one-shot guard
	ViewsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "views_suppressed_total",
			Help: "Total number of repeated detail activations not logged",
		},
	)

	// LiveSubscribers tracks open admin live feeds
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_subscribers",
			Help: "Number of open live log subscriptions",
		},
	)

	// ExportsTotal counts spreadsheet exports by outcome
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exports_total",
			Help: "Total number of log exports",
		},
		[]string{"outcome"}, // ok, empty, failed
	)

	// ==================== DATABASE METRICS ====================

	// DatabaseQueryDuration tracks database query latency
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// DatabaseErrorsTotal counts database errors
	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"operation"},
	)
)

// RecordCacheHit increments cache hit counter
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss increments cache miss counter
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordView increments the recorded views counter for an outcome
func RecordView(outcome string) {
	ViewsRecordedTotal.WithLabelValues(outcome).Inc()
}

// RecordMetadataFallback increments the placeholder metadata counter
func RecordMetadataFallback() {
	MetadataFallbacksTotal.Inc()
}

// RecordViewSuppressed increments the guard suppression counter
func RecordViewSuppressed() {
	ViewsSuppressedTotal.Inc()
}

// RecordExport increments the export counter for an outcome
func RecordExport(outcome string) {
	ExportsTotal.WithLabelValues(outcome).Inc()
}
