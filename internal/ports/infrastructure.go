// Package ports defines the interfaces that form the contract between the
// application layer and the infrastructure layer: the outbound model call,
// result persistence, and metrics collection.
package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ahrav/gavel-bench/internal/domain"
)

// Option keys understood by every LLMClient implementation.
const (
	// OptionSystem carries the system-level instruction (string).
	OptionSystem = "system"

	// OptionTemperature carries the sampling temperature (float64).
	OptionTemperature = "temperature"

	// OptionMaxTokens caps the generated length (int).
	OptionMaxTokens = "max_tokens"

	// OptionResponseSchema requests structured output (ResponseSchema).
	OptionResponseSchema = "response_schema"
)

// ResponseSchema asks a provider to constrain its output to a JSON schema.
// Providers without native structured output fall back to instructing the
// model with the schema and requesting JSON.
type ResponseSchema struct {
	// Name identifies the schema to the provider.
	Name string

	// Description is passed to providers that accept one.
	Description string

	// Schema is the JSON schema document.
	Schema json.RawMessage

	// Strict requests exact schema adherence where the provider supports it.
	Strict bool
}

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - OptionSystem: string (system instruction)
	//   - OptionTemperature: float64
	//   - OptionMaxTokens: int
	//   - OptionResponseSchema: ResponseSchema
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens calculates the approximate token count for a given text.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// RunManifest describes one persisted batch.
type RunManifest struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Template  string    `json:"template,omitempty"`
	Model     string    `json:"model,omitempty"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"created_at"`
}

// Manifest kinds.
const (
	ManifestKindInvocations = "invocations"
	ManifestKindJudgments   = "judgments"
)

// ResultStore persists and loads invocation and judgment records, one
// record per object. A store is bound to a single location.
type ResultStore interface {
	// Location returns the directory or URL the store is bound to.
	Location() string

	// SaveInvocations writes one record per result.
	SaveInvocations(ctx context.Context, results []domain.InvocationResult) error

	// LoadPairs returns every persisted invocation that carries both an
	// input and a response. Malformed records are skipped with a warning.
	LoadPairs(ctx context.Context) ([]domain.ResponsePair, error)

	// SaveJudgments writes one record per judgment.
	SaveJudgments(ctx context.Context, records []domain.JudgmentRecord) error

	// LoadJudgments returns every persisted judgment record. Malformed
	// records are skipped with a warning.
	LoadJudgments(ctx context.Context) ([]domain.JudgmentRecord, error)

	// SaveManifest records metadata about the batch written to the store.
	SaveManifest(ctx context.Context, manifest RunManifest) error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Metric names recorded by the batch driver.
const (
	MetricBatchItems    = "batch_items_total"
	MetricBatchDuration = "batch_duration_seconds"
)
