// Package testutils provides test doubles for the evaluation pipeline.
package testutils

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// MockLLMClient implements the LLMClient interface with deterministic
// responses. It can inject per-call delay jitter, so calls complete out of
// submission order, and fail calls whose prompt matches a pattern.
type MockLLMClient struct {
	mu sync.Mutex

	// model is the mock model identifier.
	model string
	// responses are matched against prompts in insertion order.
	responses []MockResponse
	// responder, when set, produces every response not matched by responses.
	responder func(prompt string, options map[string]any) (string, error)
	// failures maps a prompt substring to the error returned for it.
	failures map[string]error

	maxDelay time.Duration
	rng      *rand.Rand

	calls       []MockCall
	inFlight    int
	maxInFlight int
}

// MockResponse defines a pre-configured response pattern for the mock client.
type MockResponse struct {
	// Pattern is used to match against prompts (substring matching).
	Pattern string
	// Response is the text returned for matching prompts.
	Response string
}

// MockCall records one Complete invocation.
type MockCall struct {
	Prompt  string
	Options map[string]any
}

// NewMockLLMClient creates a MockLLMClient that echoes every prompt as
// "response: <prompt>" unless configured otherwise.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{
		model:    model,
		failures: make(map[string]error),
		rng:      rand.New(rand.NewPCG(1, 2)),
	}
}

// AddResponse registers a canned response for prompts containing Pattern.
func (m *MockLLMClient) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// SetResponder installs a function producing responses for unmatched prompts.
func (m *MockLLMClient) SetResponder(fn func(prompt string, options map[string]any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// FailOn makes every call whose prompt contains pattern return err.
func (m *MockLLMClient) FailOn(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[pattern] = err
}

// WithJitter delays each call by a random duration in [0, maxDelay) drawn
// from a generator seeded with seed.
func (m *MockLLMClient) WithJitter(maxDelay time.Duration, seed uint64) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxDelay = maxDelay
	m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return m
}

// Complete returns the configured response for prompt.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, Options: options})
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	var delay time.Duration
	if m.maxDelay > 0 {
		delay = time.Duration(m.rng.Int64N(int64(m.maxDelay)))
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for pattern, err := range m.failures {
		if strings.Contains(prompt, pattern) {
			return "", err
		}
	}
	for _, r := range m.responses {
		if strings.Contains(prompt, r.Pattern) {
			return r.Response, nil
		}
	}
	if m.responder != nil {
		return m.responder(prompt, options)
	}
	return "response: " + prompt, nil
}

// EstimateTokens approximates one token per four characters.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	return len(text) / 4, nil
}

// GetModel returns the mock model identifier.
func (m *MockLLMClient) GetModel() string { return m.model }

// Calls returns a copy of the recorded calls in invocation order.
func (m *MockLLMClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Complete invocations.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MaxInFlight returns the highest number of concurrent Complete calls seen.
func (m *MockLLMClient) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// VerdictJSON renders a judge output with one rationale and score per
// dimension and the given (possibly inconsistent) total.
func VerdictJSON(total int, scores ...int) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range scores {
		fmt.Fprintf(&b, `"q%d":"rationale %d","q%d_score":%d,`, i+1, i+1, i+1, s)
	}
	fmt.Fprintf(&b, `"total_score":%d}`, total)
	return b.String()
}

var _ ports.LLMClient = (*MockLLMClient)(nil)
