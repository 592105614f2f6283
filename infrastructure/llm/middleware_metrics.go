package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// Metric names emitted by MetricsMiddleware.
const (
	MetricRequestsTotal   = "llm_requests_total"
	MetricRequestDuration = "llm_request_duration_seconds"
	MetricTokensTotal     = "llm_tokens_total"
)

// metricsLLM records request counts, latency and token usage.
type metricsLLM struct {
	next      CoreLLM
	provider  string
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that collects request metrics
// labelled with the given provider name.
func MetricsMiddleware(provider string, collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{
			next:      next,
			provider:  provider,
			collector: collector,
		}
	}
}

// DoRequest executes the request while collecting metrics.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.GetModel(),
		"status":   requestStatus(ctx, err),
	}

	m.collector.RecordLatency(MetricRequestDuration, time.Since(start), labels)
	m.collector.RecordCounter(MetricRequestsTotal, 1, labels)

	if err == nil {
		m.collector.RecordCounter(MetricTokensTotal, float64(tokensIn), withLabel(labels, "token_type", "input"))
		m.collector.RecordCounter(MetricTokensTotal, float64(tokensOut), withLabel(labels, "token_type", "output"))
	}

	return response, tokensIn, tokensOut, err
}

// requestStatus maps a request outcome to a low-cardinality status label.
func requestStatus(ctx context.Context, err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Type != ErrorTypeUnknown {
		return provErr.Type.String()
	}
	return "error"
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
