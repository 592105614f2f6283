package ports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/gavel-bench/internal/domain"
)

// Test that our interfaces can be implemented correctly

// mockLLMClient implements LLMClient interface
type mockLLMClient struct{ model string }

func (m *mockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if _, ok := options[OptionResponseSchema].(ResponseSchema); ok {
		return `{"q1":"ok","q1_score":1,"total_score":1}`, nil
	}
	return "mock response", nil
}

func (m *mockLLMClient) EstimateTokens(text string) (int, error) {
	// Simple estimation: ~4 characters per token
	return len(text) / 4, nil
}

func (m *mockLLMClient) GetModel() string { return m.model }

// memoryStore implements ResultStore in memory.
type memoryStore struct {
	invocations []domain.InvocationResult
	judgments   []domain.JudgmentRecord
	manifests   []RunManifest
}

func (m *memoryStore) Location() string { return "memory://" }

func (m *memoryStore) SaveInvocations(_ context.Context, results []domain.InvocationResult) error {
	m.invocations = append(m.invocations, results...)
	return nil
}

func (m *memoryStore) LoadPairs(context.Context) ([]domain.ResponsePair, error) {
	pairs := make([]domain.ResponsePair, 0, len(m.invocations))
	for _, r := range m.invocations {
		pairs = append(pairs, domain.ResponsePair{Input: r.Input, Response: r.Output})
	}
	return pairs, nil
}

func (m *memoryStore) SaveJudgments(_ context.Context, records []domain.JudgmentRecord) error {
	m.judgments = append(m.judgments, records...)
	return nil
}

func (m *memoryStore) LoadJudgments(context.Context) ([]domain.JudgmentRecord, error) {
	return m.judgments, nil
}

func (m *memoryStore) SaveManifest(_ context.Context, manifest RunManifest) error {
	m.manifests = append(m.manifests, manifest)
	return nil
}

// mockMetricsCollector implements MetricsCollector interface
type mockMetricsCollector struct {
	latencies  map[string]time.Duration
	counters   map[string]float64
	histograms map[string][]float64
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		latencies:  make(map[string]time.Duration),
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *mockMetricsCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	m.latencies[operation] = duration
}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	m.counters[metric] += value
}

func (m *mockMetricsCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.histograms[metric] = append(m.histograms[metric], value)
}

func TestInterfaces_Implementation(t *testing.T) {
	var _ LLMClient = (*mockLLMClient)(nil)
	var _ ResultStore = (*memoryStore)(nil)
	var _ MetricsCollector = (*mockMetricsCollector)(nil)
}

func TestLLMClient_ResponseSchemaOption(t *testing.T) {
	client := &mockLLMClient{model: "gpt-4.1"}

	plain, err := client.Complete(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "mock response", plain)

	structured, err := client.Complete(context.Background(), "hello", map[string]any{
		OptionResponseSchema: ResponseSchema{Name: "rubric", Schema: json.RawMessage(`{}`), Strict: true},
	})
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(structured)))
}

func TestResultStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}

	require.NoError(t, store.SaveInvocations(ctx, []domain.InvocationResult{
		{Index: 0, Input: "a", Output: "A"},
		{Index: 1, Input: "b", Output: "B"},
	}))
	pairs, err := store.LoadPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ResponsePair{{Input: "a", Response: "A"}, {Input: "b", Response: "B"}}, pairs)

	require.NoError(t, store.SaveManifest(ctx, RunManifest{RunID: "r1", Kind: ManifestKindInvocations, Records: 2}))
	assert.Len(t, store.manifests, 1)
}

func TestMetricsCollector_Recording(t *testing.T) {
	collector := newMockMetricsCollector()

	collector.RecordLatency("invoke", 150*time.Millisecond, map[string]string{"model": "gpt-4.1"})
	collector.RecordCounter("items", 1, nil)
	collector.RecordCounter("items", 2, nil)
	collector.RecordHistogram("score", 4, nil)

	assert.Equal(t, 150*time.Millisecond, collector.latencies["invoke"])
	assert.Equal(t, 3.0, collector.counters["items"])
	assert.Equal(t, []float64{4}, collector.histograms["score"])
}
