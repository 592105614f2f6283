// Package middleware provides cross-cutting concerns for the evaluation engine.
package middleware

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/gavel-bench/infrastructure/llm"
	"github.com/ahrav/gavel-bench/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It exposes per-request LLM metrics recorded by llm.MetricsMiddleware and
// per-batch metrics recorded by the dispatcher and the judge.
type PrometheusMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	tokensTotal      *prometheus.CounterVec
	batchItems       *prometheus.CounterVec
	batchDuration    *prometheus.HistogramVec
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all metrics with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: llm.MetricRequestsTotal,
				Help: "Total number of LLM requests by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    llm.MetricRequestDuration,
				Help:    "Latency of LLM requests.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model", "status"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: llm.MetricTokensTotal,
				Help: "Total number of tokens reported by LLM providers.",
			},
			[]string{"provider", "model", "token_type"},
		),
		batchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: ports.MetricBatchItems,
				Help: "Items processed by dispatch and judge batches.",
			},
			[]string{"operation", "status"},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    ports.MetricBatchDuration,
				Help:    "Wall-clock duration of dispatch and judge batches.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"operation", "status"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gavel_operation_duration_seconds",
				Help:    "Execution time of other instrumented operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_operations_total",
				Help: "Counters recorded under names without a dedicated metric.",
			},
			[]string{"metric", "status"},
		),
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case llm.MetricRequestDuration:
		pm.requestDuration.WithLabelValues(
			labelOr(labels, "provider"),
			labelOr(labels, "model"),
			labelOr(labels, "status"),
		).Observe(duration.Seconds())
	case ports.MetricBatchDuration:
		pm.batchDuration.WithLabelValues(
			labelOr(labels, "operation"),
			labelOr(labels, "status"),
		).Observe(duration.Seconds())
	default:
		pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case llm.MetricRequestsTotal:
		pm.requestsTotal.WithLabelValues(
			labelOr(labels, "provider"),
			labelOr(labels, "model"),
			labelOr(labels, "status"),
		).Add(value)
	case llm.MetricTokensTotal:
		pm.tokensTotal.WithLabelValues(
			labelOr(labels, "provider"),
			labelOr(labels, "model"),
			labelOr(labels, "token_type"),
		).Add(value)
	case ports.MetricBatchItems:
		pm.batchItems.WithLabelValues(
			labelOr(labels, "operation"),
			labelOr(labels, "status"),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, labelOr(labels, "status")).Add(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric == ports.MetricBatchDuration {
		pm.batchDuration.WithLabelValues(
			labelOr(labels, "operation"),
			labelOr(labels, "status"),
		).Observe(value)
		return
	}
	pm.operationLatency.WithLabelValues(metric).Observe(value)
}

// labelOr returns the label value, or "unknown" when it is missing or empty.
func labelOr(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
