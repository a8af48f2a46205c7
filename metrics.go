package skyfetch

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the fetch lifecycle and
// the reliability layers. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   prometheus.Gauge
	staleServed *prometheus.CounterVec

	deduplicationHits *prometheus.CounterVec

	queueDepth prometheus.Gauge
	poolSize   prometheus.Gauge

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyfetch_requests_total",
				Help: "Total number of logical fetch requests",
			},
			[]string{"endpoint", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skyfetch_request_duration_seconds",
				Help:    "Duration of logical fetch requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status_code"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "skyfetch_requests_in_flight",
				Help: "Number of logical fetch requests currently in flight",
			},
			[]string{"endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyfetch_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"endpoint", "attempt"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyfetch_cache_hits_total",
				Help: "Total number of fresh cache hits",
			},
			[]string{"endpoint"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyfetch_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"endpoint"},
		),
		cacheSize: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "skyfetch_cache_size",
				Help: "Current number of entries in the cache index",
			},
		),
		staleServed: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyfetch_stale_served_total",
				Help: "Total number of stale cache entries served as fallback",
			},
			[]string{"endpoint"},
		),
		deduplicationHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyfetch_deduplication_hits_total",
				Help: "Total number of requests coalesced into an in-flight fetch",
			},
			[]string{"endpoint"},
		),
		queueDepth: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "skyfetch_scheduler_queue_depth",
				Help: "Current number of requests waiting for a concurrency slot",
			},
		),
		poolSize: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "skyfetch_connection_pool_size",
				Help: "Current number of pooled per-host connections",
			},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyfetch_errors_total",
				Help: "Total number of classified errors",
			},
			[]string{"type", "endpoint"},
		),
	}
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(endpoint string) {
	mc.requestsInFlight.WithLabelValues(endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(endpoint string) {
	mc.requestsInFlight.WithLabelValues(endpoint).Dec()
}

// RecordRequest observes a finished logical request.
func (mc *MetricsCollector) RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(endpoint, status).Inc()
	mc.requestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// RecordRetry counts one retry attempt.
func (mc *MetricsCollector) RecordRetry(endpoint string, attempt int) {
	mc.retriesTotal.WithLabelValues(endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordCacheHit counts a fresh cache hit.
func (mc *MetricsCollector) RecordCacheHit(endpoint string) {
	mc.cacheHits.WithLabelValues(endpoint).Inc()
}

// RecordCacheMiss counts a cache miss.
func (mc *MetricsCollector) RecordCacheMiss(endpoint string) {
	mc.cacheMisses.WithLabelValues(endpoint).Inc()
}

// RecordCacheSize reports the current cache index size.
func (mc *MetricsCollector) RecordCacheSize(size int) {
	mc.cacheSize.Set(float64(size))
}

// RecordStaleServed counts a stale fallback response.
func (mc *MetricsCollector) RecordStaleServed(endpoint string) {
	mc.staleServed.WithLabelValues(endpoint).Inc()
}

// RecordDeduplicationHit counts a caller attached to an in-flight fetch.
func (mc *MetricsCollector) RecordDeduplicationHit(endpoint string) {
	mc.deduplicationHits.WithLabelValues(endpoint).Inc()
}

// RecordQueueDepth reports the scheduler queue length.
func (mc *MetricsCollector) RecordQueueDepth(depth int) {
	mc.queueDepth.Set(float64(depth))
}

// RecordPoolSize reports the number of pooled hosts.
func (mc *MetricsCollector) RecordPoolSize(size int) {
	mc.poolSize.Set(float64(size))
}

// RecordError counts a classified error.
func (mc *MetricsCollector) RecordError(errorType, endpoint string) {
	mc.errorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
