// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "event_validation"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationErrors   *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	LookupFailures     prometheus.Counter
	EncryptedFields    prometheus.Counter

	// Schema cache metrics
	SchemaCacheHits   prometheus.Counter
	SchemaCacheMisses prometheus.Counter
	SchemaLoads       *prometheus.CounterVec
	SchemaLoadLatency prometheus.Histogram
	SchemasDiscovered prometheus.Counter

	// Kafka metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
	KafkaConsumed       *prometheus.CounterVec
	KafkaConsumeErrors  prometheus.Counter
	WorkersBusy         prometheus.Gauge

	// API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Validation metrics
		ValidationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of events validated",
		}, []string{"result"}),
		ValidationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Total number of validation errors by code",
		}, []string{"code"}),
		ValidationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent validating one event, schema lookup included",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		LookupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_failures_total",
			Help:      "Total number of validations aborted because no schema was found",
		}),
		EncryptedFields: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encrypted_fields_total",
			Help:      "Total number of encrypted field paths reported",
		}),

		// Schema cache metrics
		SchemaCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_cache_hits_total",
			Help:      "Total number of schema lookups served from cache",
		}),
		SchemaCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_cache_misses_total",
			Help:      "Total number of schema lookups that missed the cache",
		}),
		SchemaLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_loads_total",
			Help:      "Total number of schema fetch+parse operations",
		}, []string{"outcome"}),
		SchemaLoadLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schema_load_latency_seconds",
			Help:      "Schema fetch+parse latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		SchemasDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schemas_discovered_total",
			Help:      "Total number of schema files picked up by the directory watcher",
		}),

		// Kafka metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "outcome"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "outcome"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
		KafkaConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumed_total",
			Help:      "Total number of Kafka messages consumed by outcome",
		}, []string{"outcome"}),
		KafkaConsumeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consume_errors_total",
			Help:      "Total number of Kafka fetch or commit errors",
		}),
		WorkersBusy: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_busy",
			Help:      "Number of consumer workers currently validating an event",
		}),

		// API metrics
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"api", "method", "code"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"api", "method"}),
	}
}

// RecordValidation records a completed validation.
func (m *Metrics) RecordValidation(success bool, durationSeconds float64) {
	result := "invalid"
	if success {
		result = "valid"
	}
	m.ValidationsTotal.WithLabelValues(result).Inc()
	m.ValidationDuration.Observe(durationSeconds)
}

// RecordValidationError records one validation error by code.
func (m *Metrics) RecordValidationError(code string) {
	m.ValidationErrors.WithLabelValues(code).Inc()
}

// RecordLookupFailure records a validation that found no schema.
func (m *Metrics) RecordLookupFailure() {
	m.LookupFailures.Inc()
}

// RecordEncryptedFields records encrypted field paths reported for one event.
func (m *Metrics) RecordEncryptedFields(n int) {
	m.EncryptedFields.Add(float64(n))
}

// RecordCacheHit records a schema cache hit.
func (m *Metrics) RecordCacheHit() {
	m.SchemaCacheHits.Inc()
}

// RecordCacheMiss records a schema cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.SchemaCacheMisses.Inc()
}

// RecordSchemaLoad records a schema fetch+parse.
func (m *Metrics) RecordSchemaLoad(err error, latencySeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SchemaLoads.WithLabelValues(outcome).Inc()
	m.SchemaLoadLatency.Observe(latencySeconds)
}

// RecordSchemaDiscovered records a schema file found by the watcher.
func (m *Metrics) RecordSchemaDiscovered() {
	m.SchemasDiscovered.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, outcome string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, outcome).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, outcome).Inc()
	}
}

// RecordConsumed records a consumed message and how it was routed.
func (m *Metrics) RecordConsumed(outcome string) {
	m.KafkaConsumed.WithLabelValues(outcome).Inc()
}

// RecordConsumeError records a fetch or commit failure.
func (m *Metrics) RecordConsumeError() {
	m.KafkaConsumeErrors.Inc()
}

// RecordRequest records an API request.
func (m *Metrics) RecordRequest(api, method, code string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(api, method, code).Inc()
	m.RequestDuration.WithLabelValues(api, method).Observe(durationSeconds)
}
