// Package metrics provides Prometheus metrics for the Umwero practice service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the practice service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	accuracyBuckets  []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Grading
	attemptsGraded    *prometheus.CounterVec
	attemptAccuracy   prometheus.Histogram
	deviations        *prometheus.CounterVec
	validationLatency prometheus.Histogram
	attemptsDuplicate prometheus.Counter
	attemptsDropped   prometheus.Counter
	batchSize         prometheus.Histogram
	sheetsRendered    prometheus.Counter

	// Progress
	recordsPersisted  prometheus.Counter
	recordsFailed     prometheus.Counter
	progressImproved  prometheus.Counter
	templatesLoaded   prometheus.Gauge
	learnersTracked   prometheus.Gauge
	repositoryLatency *prometheus.HistogramVec

	// Queue
	queueCapacity    prometheus.Gauge
	queueSize        prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueue     prometheus.Counter
	queueDequeue     prometheus.Counter
	queueEnqueueErr  prometheus.Counter
	capacity         atomic.Int64

	// Workers
	workerCount             prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerLatency           prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Default bucket layouts. Latencies are recorded in milliseconds; accuracy
// buckets split 0-100 at the grade cut points.
func defaultLatencyBuckets() []float64 {
	return []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}
}

func defaultAccuracyBuckets() []float64 {
	return []float64{10, 20, 30, 40, 50, 60, 75, 90, 100}
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "umwero",
		subsystem:        "practice",
		latencyBuckets:   defaultLatencyBuckets(),
		accuracyBuckets:  defaultAccuracyBuckets(),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.latencyBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric family
	m.attemptsGraded = m.counterVec("attempts_graded_total", "Attempts graded, by grade", "grade")
	m.attemptAccuracy = m.histogram("attempt_accuracy", "Distribution of attempt accuracy (0-100)", m.accuracyBuckets)
	m.deviations = m.counterVec("deviations_total", "Flagged strokes, by issue", "issue")
	m.validationLatency = m.histogram("validation_latency_milliseconds", "Time spent grading one attempt", m.latencyBuckets)
	m.attemptsDuplicate = m.counter("attempts_duplicate_total", "Attempts resubmitted with a known attempt id")
	m.attemptsDropped = m.counter("attempts_dropped_total", "Attempts graded but not recorded because the queue was full")
	m.batchSize = m.histogram("batch_size", "Number of attempts per batch request", prometheus.LinearBuckets(1, 5, 10))
	m.sheetsRendered = m.counter("sheets_rendered_total", "Practice sheets rendered as PDF")

	m.recordsPersisted = m.counter("records_persisted_total", "Attempt records written to the store")
	m.recordsFailed = m.counter("records_failed_total", "Attempt records the store rejected")
	m.progressImproved = m.counter("progress_improved_total", "Records that raised a learner's best accuracy")
	m.templatesLoaded = m.gauge("templates_loaded", "Character templates in the catalog")
	m.learnersTracked = m.gauge("learners_tracked", "Learners with at least one recorded attempt")
	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds", "Store operation latency", "operation")

	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the record queue")
	m.queueSize = m.gauge("queue_size", "Current size of the record queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Records enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Records dequeued")
	m.queueEnqueueErr = m.counter("queue_enqueue_errors_total", "Records rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Running record workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Records processed per second across the pool")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Time spent recording one attempt", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Records the workers failed to persist")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Live goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause", m.latencyBuckets)
}

// Grading.

func RecordAttemptGraded(grade string, accuracy float64) {
	globalManager.attemptsGraded.WithLabelValues(grade).Inc()
	globalManager.attemptAccuracy.Observe(accuracy)
}

func RecordDeviation(issue string) { globalManager.deviations.WithLabelValues(issue).Inc() }
func RecordValidationLatency(latencyMs float64) { globalManager.validationLatency.Observe(latencyMs) }
func RecordAttemptDuplicate() { globalManager.attemptsDuplicate.Inc() }
func RecordAttemptDropped() { globalManager.attemptsDropped.Inc() }
func RecordBatchSize(n int) { globalManager.batchSize.Observe(float64(n)) }
func RecordSheetRendered() { globalManager.sheetsRendered.Inc() }

// Progress and storage.

func RecordRecordPersisted() { globalManager.recordsPersisted.Inc() }
func RecordRecordFailed() { globalManager.recordsFailed.Inc() }
func RecordProgressImproved() { globalManager.progressImproved.Inc() }
func UpdateTemplatesLoaded(n int) { globalManager.templatesLoaded.Set(float64(n)) }
func UpdateLearnersTracked(n int) { globalManager.learnersTracked.Set(float64(n)) }

// RecordRepositoryLatency observes one store operation such as "record" or "top_n".
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// Queue.

func UpdateQueueCapacity(capacity int) {
	globalManager.capacity.Store(int64(capacity))
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the queue size and utilization gauges together.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
	capacity := globalManager.capacity.Load()
	if capacity <= 0 {
		globalManager.queueUtilization.Set(0)
		return
	}
	globalManager.queueUtilization.Set(float64(size) / float64(capacity))
}

func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }
func RecordQueueEnqueueError() { globalManager.queueEnqueueErr.Inc() }

// Workers.

func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }
func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.workerMessagesPerSecond.Set(rate) }
func RecordWorkerProcessingLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom registry used for metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
