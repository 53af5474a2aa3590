// Package metrics provides Prometheus metrics for the topdish ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ranking service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Core Business Metrics - What really matters for a ranking engine
	submissions      *prometheus.CounterVec
	displacements    prometheus.Counter
	demotions        prometheus.Counter
	cascadeDepth     prometheus.Histogram
	historyAppends   prometheus.Counter
	duplicates       prometheus.Counter
	contentionAborts prometheus.Counter

	// Publication Metrics - Change event delivery
	publishQueueDepth prometheus.Gauge
	publishSuccess    prometheus.Counter
	publishFailures   prometheus.Counter

	// Cache Metrics - Stats cache behaviour
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Repository Metrics
	repositoryTxLatency    prometheus.Histogram
	repositoryQueryLatency prometheus.Histogram
	trackedRankings        prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "topdish",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.submissions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Ranking submissions by outcome (accepted, noop, rejected, duplicate).",
	}, []string{"outcome"})

	m.displacements = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "displacements_total",
		Help:      "Rankings shifted to a worse slot by an incoming submission.",
	})

	m.demotions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "demotions_total",
		Help:      "Rankings pushed out of the ranked set by a full cascade.",
	})

	m.cascadeDepth = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cascade_depth",
		Help:      "Number of rankings touched by a single committed submission.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6},
	})

	m.historyAppends = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_appends_total",
		Help:      "History entries appended.",
	})

	m.duplicates = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_submissions_total",
		Help:      "Submissions short-circuited by the idempotency cache.",
	})

	m.contentionAborts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contention_aborts_total",
		Help:      "Submissions aborted waiting on a scope-key lock.",
	})

	m.publishQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_queue_depth",
		Help:      "Change events waiting for publication.",
	})

	m.publishSuccess = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_success_total",
		Help:      "Change events handed to the publisher.",
	})

	m.publishFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_failures_total",
		Help:      "Change events the publisher failed to deliver.",
	})

	m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stats_cache_hits_total",
		Help:      "Dish stats served from cache.",
	})

	m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stats_cache_misses_total",
		Help:      "Dish stats recomputed from the store.",
	})

	m.repositoryTxLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_tx_latency_ms",
		Help:      "Commit latency of ranking change sets in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_ms",
		Help:      "Read query latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.trackedRankings = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_rankings",
		Help:      "Current number of ranking rows in the store.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// Package-level helpers on the global manager.

// RecordSubmission records a submission by outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordDisplacement records one ranking shifted to a worse slot.
func RecordDisplacement() {
	globalManager.displacements.Inc()
}

// RecordDemotion records one ranking demoted out of the ranked set.
func RecordDemotion() {
	globalManager.demotions.Inc()
}

// RecordCascadeDepth records how many rankings one submission touched.
func RecordCascadeDepth(depth int) {
	globalManager.cascadeDepth.Observe(float64(depth))
}

// RecordHistoryAppends records appended history entries.
func RecordHistoryAppends(n int) {
	globalManager.historyAppends.Add(float64(n))
}

// RecordDuplicateSubmission records an idempotency-cache hit.
func RecordDuplicateSubmission() {
	globalManager.duplicates.Inc()
}

// RecordContentionAbort records a submission that timed out on its scope lock.
func RecordContentionAbort() {
	globalManager.contentionAborts.Inc()
}

// UpdatePublishQueueDepth updates the publish queue depth gauge.
func UpdatePublishQueueDepth(depth int) {
	globalManager.publishQueueDepth.Set(float64(depth))
}

// RecordPublishSuccess records a delivered change event.
func RecordPublishSuccess() {
	globalManager.publishSuccess.Inc()
}

// RecordPublishFailure records a change event that failed to deliver.
func RecordPublishFailure() {
	globalManager.publishFailures.Inc()
}

// RecordCacheHit records a stats cache hit.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss records a stats cache miss.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordRepositoryTxLatency records change-set commit latency.
func RecordRepositoryTxLatency(latencyMs float64) {
	globalManager.repositoryTxLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records read query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateTrackedRankings updates the tracked rankings gauge.
func UpdateTrackedRankings(count int) {
	globalManager.trackedRankings.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
