package llm

import (
	"context"
	"sync"
	"time"
)

// MockCoreLLM is a scripted CoreLLM that records the last request it saw.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	calls       int
	LastPrompt  string
	LastOpts    map[string]any
	LastContext context.Context
}

// NewMockCoreLLM returns a mock answering "test response" with 10 input and
// 20 output tokens.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{Response: "test response", TokensIn: 10, TokensOut: 20, Model: "test-model"}
}

func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.calls++
	m.LastPrompt, m.LastOpts, m.LastContext = prompt, opts, ctx
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return "", 0, 0, m.Error
	}
	return m.Response, m.TokensIn, m.TokensOut, nil
}

func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// Calls returns how many requests the mock has served.
func (m *MockCoreLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
