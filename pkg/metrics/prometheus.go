// Package metrics provides Prometheus metrics for the churnlens analytics service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Dataset Metrics - load pipeline and snapshot publication
	datasetLoads           *prometheus.CounterVec
	datasetLoadDuration    prometheus.Histogram
	datasetRows            *prometheus.GaugeVec
	datasetWarnings        prometheus.Gauge
	customersTotal         prometheus.Gauge
	agentsTotal            prometheus.Gauge
	snapshotLastUnix       prometheus.Gauge
	snapshotCount          prometheus.Counter
	repositoryQueryLatency prometheus.Histogram

	// Scoring Metrics
	scoringLatency   prometheus.Histogram
	scoringFallbacks *prometheus.CounterVec
	customersScored  *prometheus.CounterVec

	// Query Metrics - filters, cache and forecasts
	filterLatency    prometheus.Histogram
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheEvictions   prometheus.Counter
	cacheSize        prometheus.Gauge
	forecastRequests *prometheus.CounterVec
	forecastLatency  prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "churnlens",
		subsystem:        "analytics",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	loadBuckets := []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

	// Dataset Metrics
	m.datasetLoads = auto.NewCounterVec(
		m.counterOpts("dataset_loads_total", "Total number of dataset loads by outcome"),
		[]string{"status"},
	)
	m.datasetLoadDuration = auto.NewHistogram(
		m.histogramOpts("dataset_load_duration_milliseconds", "Full load pipeline duration in milliseconds", loadBuckets),
	)
	m.datasetRows = auto.NewGaugeVec(
		m.gaugeOpts("dataset_rows", "Rows read per input table in the current snapshot"),
		[]string{"table"},
	)
	m.datasetWarnings = auto.NewGauge(
		m.gaugeOpts("dataset_warnings", "Number of load warnings attached to the current snapshot"),
	)
	m.customersTotal = auto.NewGauge(
		m.gaugeOpts("customers_total", "Customers in the current snapshot"),
	)
	m.agentsTotal = auto.NewGauge(
		m.gaugeOpts("agents_total", "Agents in the current snapshot"),
	)
	m.snapshotLastUnix = auto.NewGauge(
		m.gaugeOpts("snapshot_last_unix", "Unix timestamp of the last snapshot publish"),
	)
	m.snapshotCount = auto.NewCounter(
		m.counterOpts("snapshot_count_total", "Total number of snapshots published"),
	)
	m.repositoryQueryLatency = auto.NewHistogram(
		m.histogramOpts("repository_query_latency_milliseconds", "Snapshot store query latency in milliseconds", nil),
	)

	// Scoring Metrics
	m.scoringLatency = auto.NewHistogram(
		m.histogramOpts("scoring_latency_milliseconds", "Churn scoring latency in milliseconds", loadBuckets),
	)
	m.scoringFallbacks = auto.NewCounterVec(
		m.counterOpts("scoring_fallbacks_total", "Scoring runs that fell back to the inactivity heuristic, by reason"),
		[]string{"reason"},
	)
	m.customersScored = auto.NewCounterVec(
		m.counterOpts("customers_scored_total", "Customers scored, by scorer"),
		[]string{"scorer"},
	)

	// Query Metrics
	m.filterLatency = auto.NewHistogram(
		m.histogramOpts("filter_latency_milliseconds", "Customer filter latency in milliseconds", nil),
	)
	m.cacheHits = auto.NewCounter(
		m.counterOpts("query_cache_hits_total", "Query cache hits"),
	)
	m.cacheMisses = auto.NewCounter(
		m.counterOpts("query_cache_misses_total", "Query cache misses"),
	)
	m.cacheEvictions = auto.NewCounter(
		m.counterOpts("query_cache_evictions_total", "Query cache evictions"),
	)
	m.cacheSize = auto.NewGauge(
		m.gaugeOpts("query_cache_size", "Entries currently held by the query cache"),
	)
	m.forecastRequests = auto.NewCounterVec(
		m.counterOpts("forecast_requests_total", "Forecast projections by scenario"),
		[]string{"scenario"},
	)
	m.forecastLatency = auto.NewHistogram(
		m.histogramOpts("forecast_latency_milliseconds", "Forecast projection latency in milliseconds", nil),
	)

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", nil),
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Enabled reports whether the global manager records observations.
func Enabled() bool {
	return globalManager.enabled
}

// RefreshInterval is how often periodic gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// Dataset Metrics Functions

// RecordDatasetLoad counts one load attempt; status is "success" or "failure".
func RecordDatasetLoad(status string) {
	if globalManager.enabled {
		globalManager.datasetLoads.WithLabelValues(status).Inc()
	}
}

// RecordDatasetLoadDuration records a load pipeline duration in milliseconds.
func RecordDatasetLoadDuration(ms float64) {
	if globalManager.enabled {
		globalManager.datasetLoadDuration.Observe(ms)
	}
}

// UpdateDatasetRows sets the row count of one input table.
func UpdateDatasetRows(table string, rows int) {
	if globalManager.enabled {
		globalManager.datasetRows.WithLabelValues(table).Set(float64(rows))
	}
}

// UpdateDatasetWarnings sets the number of load warnings.
func UpdateDatasetWarnings(n int) {
	if globalManager.enabled {
		globalManager.datasetWarnings.Set(float64(n))
	}
}

// UpdateCustomersTotal sets the customer count.
func UpdateCustomersTotal(n int) {
	if globalManager.enabled {
		globalManager.customersTotal.Set(float64(n))
	}
}

// UpdateAgentsTotal sets the agent count.
func UpdateAgentsTotal(n int) {
	if globalManager.enabled {
		globalManager.agentsTotal.Set(float64(n))
	}
}

// RecordSnapshotPublished marks a snapshot swap.
func RecordSnapshotPublished(at time.Time) {
	if globalManager.enabled {
		globalManager.snapshotCount.Inc()
		globalManager.snapshotLastUnix.Set(float64(at.Unix()))
	}
}

// RecordRepositoryQueryLatency records a snapshot store lookup in milliseconds.
func RecordRepositoryQueryLatency(ms float64) {
	if globalManager.enabled {
		globalManager.repositoryQueryLatency.Observe(ms)
	}
}

// Scoring Metrics Functions

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(ms float64) {
	if globalManager.enabled {
		globalManager.scoringLatency.Observe(ms)
	}
}

// RecordScoringFallback counts a fallback to the heuristic scorer.
func RecordScoringFallback(reason string) {
	if globalManager.enabled {
		globalManager.scoringFallbacks.WithLabelValues(reason).Inc()
	}
}

// RecordCustomersScored counts scored customers.
func RecordCustomersScored(scorer string, n int) {
	if globalManager.enabled {
		globalManager.customersScored.WithLabelValues(scorer).Add(float64(n))
	}
}

// Query Metrics Functions

// RecordFilterLatency records filter latency in milliseconds.
func RecordFilterLatency(ms float64) {
	if globalManager.enabled {
		globalManager.filterLatency.Observe(ms)
	}
}

// RecordCacheHit counts a query cache hit.
func RecordCacheHit() {
	if globalManager.enabled {
		globalManager.cacheHits.Inc()
	}
}

// RecordCacheMiss counts a query cache miss.
func RecordCacheMiss() {
	if globalManager.enabled {
		globalManager.cacheMisses.Inc()
	}
}

// RecordCacheEviction counts an evicted cache entry.
func RecordCacheEviction() {
	if globalManager.enabled {
		globalManager.cacheEvictions.Inc()
	}
}

// UpdateCacheSize sets the number of cached entries.
func UpdateCacheSize(n int) {
	if globalManager.enabled {
		globalManager.cacheSize.Set(float64(n))
	}
}

// RecordForecast counts one projection and its latency in milliseconds.
func RecordForecast(scenario string, ms float64) {
	if globalManager.enabled {
		globalManager.forecastRequests.WithLabelValues(scenario).Inc()
		globalManager.forecastLatency.Observe(ms)
	}
}

// HTTP Metrics Functions

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// Error Metrics Functions

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error by endpoint, method, and type.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// System Metrics Functions

// UpdateSystemMemoryUsage updates the system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount updates the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry for HTTP handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
