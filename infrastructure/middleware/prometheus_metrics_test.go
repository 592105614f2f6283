package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/gavel-bench/infrastructure/llm"
	"github.com/ahrav/gavel-bench/internal/ports"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

// TestNewPrometheusMetrics verifies that every metric vector is initialized
// and that separate registries do not conflict.
func TestNewPrometheusMetrics(t *testing.T) {
	pm, _ := newTestMetrics(t)

	assert.NotNil(t, pm.requestsTotal)
	assert.NotNil(t, pm.requestDuration)
	assert.NotNil(t, pm.tokensTotal)
	assert.NotNil(t, pm.batchItems)
	assert.NotNil(t, pm.batchDuration)
	assert.NotNil(t, pm.operationLatency)
	assert.NotNil(t, pm.operationCounter)

	assert.NotPanics(t, func() { newTestMetrics(t) })
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm, _ := newTestMetrics(t)
	labels := map[string]string{"provider": "openai", "model": "gpt-4.1", "status": "success"}

	pm.RecordCounter(llm.MetricRequestsTotal, 1, labels)
	pm.RecordCounter(llm.MetricRequestsTotal, 2, labels)
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.requestsTotal.WithLabelValues("openai", "gpt-4.1", "success")))

	pm.RecordCounter(llm.MetricTokensTotal, 40, map[string]string{
		"provider": "openai", "model": "gpt-4.1", "token_type": "input",
	})
	assert.Equal(t, 40.0, testutil.ToFloat64(pm.tokensTotal.WithLabelValues("openai", "gpt-4.1", "input")))

	pm.RecordCounter(ports.MetricBatchItems, 25, map[string]string{"operation": "dispatch", "status": "success"})
	assert.Equal(t, 25.0, testutil.ToFloat64(pm.batchItems.WithLabelValues("dispatch", "success")))

	pm.RecordCounter("custom_metric", 1, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.operationCounter.WithLabelValues("custom_metric", "unknown")))
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency(llm.MetricRequestDuration, 300*time.Millisecond, map[string]string{
		"provider": "anthropic", "model": "claude", "status": "success",
	})
	pm.RecordLatency(ports.MetricBatchDuration, 2*time.Second, map[string]string{
		"operation": "judge", "status": "error",
	})
	pm.RecordLatency("load_records", 10*time.Millisecond, nil)
	pm.RecordHistogram(ports.MetricBatchDuration, 4, map[string]string{"operation": "dispatch", "status": "success"})

	assert.Equal(t, 1, testutil.CollectAndCount(pm.requestDuration))
	assert.Equal(t, 2, testutil.CollectAndCount(pm.batchDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.operationLatency))

	count, err := testutil.GatherAndCount(reg, ports.MetricBatchDuration)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLabelOr(t *testing.T) {
	assert.Equal(t, "x", labelOr(map[string]string{"k": "x"}, "k"))
	assert.Equal(t, "unknown", labelOr(map[string]string{"k": ""}, "k"))
	assert.Equal(t, "unknown", labelOr(nil, "k"))
}

// TestPrometheusMetrics_WithMiddleware drives the collector through the LLM
// metrics middleware and scrapes the handler.
func TestPrometheusMetrics_WithMiddleware(t *testing.T) {
	pm, reg := newTestMetrics(t)

	mock := llm.NewMockCoreLLM()
	client := llm.NewClientFromCore(mock, llm.ClientConfig{
		Middleware: []llm.Middleware{llm.MetricsMiddleware("openai", pm)},
	})

	_, err := client.Complete(context.Background(), "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestsTotal.WithLabelValues("openai", "test-model", "success")))
	assert.Equal(t, 10.0, testutil.ToFloat64(pm.tokensTotal.WithLabelValues("openai", "test-model", "input")))
	assert.Equal(t, 20.0, testutil.ToFloat64(pm.tokensTotal.WithLabelValues("openai", "test-model", "output")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), llm.MetricRequestsTotal))
}
