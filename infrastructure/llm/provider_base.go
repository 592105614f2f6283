package llm

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// Request bounds shared by every provider.
const (
	DefaultMaxTokens = 4096
	MinTemperature   = 0.0
	MaxTemperature   = 2.0
	MinTimeout       = time.Second
	MaxTimeout       = 10 * time.Minute
)

// BaseProvider holds the model name behind a lock. Providers embed it.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the typed form of a ports.Option* map.
type RequestOptions struct {
	MaxTokens int
	Model     string
	// Temperature is nil when the provider default applies.
	Temperature *float64
	System      string
	Schema      *ports.ResponseSchema
	// Extra holds keys no provider interprets.
	Extra map[string]any
}

var knownOptions = map[string]bool{
	ports.OptionMaxTokens:      true,
	ports.OptionSystem:         true,
	ports.OptionTemperature:    true,
	ports.OptionResponseSchema: true,
	"model":                    true,
}

// ParseRequestOptions reads opts into RequestOptions. Values of the wrong
// type or out of range are ignored in favour of the defaults.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	o := RequestOptions{
		MaxTokens: DefaultMaxTokens,
		Model:     defaultModel,
		Extra:     make(map[string]any),
	}

	if n, ok := optionValue(opts, ports.OptionMaxTokens, func(n int) bool { return n > 0 }); ok {
		o.MaxTokens = n
	}
	if m, ok := optionValue(opts, "model", func(s string) bool { return s != "" }); ok {
		o.Model = m
	}
	o.System, _ = optionValue[string](opts, ports.OptionSystem, nil)
	if t, ok := optionValue(opts, ports.OptionTemperature, func(t float64) bool {
		return t >= MinTemperature && t <= MaxTemperature
	}); ok {
		o.Temperature = &t
	}

	switch s := opts[ports.OptionResponseSchema].(type) {
	case ports.ResponseSchema:
		o.Schema = &s
	case *ports.ResponseSchema:
		o.Schema = s
	}

	for k, v := range opts {
		if !knownOptions[k] {
			o.Extra[k] = v
		}
	}
	return o
}

// optionValue returns opts[key] when it has type T and passes valid.
func optionValue[T any](opts map[string]any, key string, valid func(T) bool) (T, bool) {
	v, ok := opts[key].(T)
	if !ok || (valid != nil && !valid(v)) {
		var zero T
		return zero, false
	}
	return v, true
}

// schemaInstruction appends a JSON-only instruction carrying the schema to
// system. Providers without native structured output use it.
func schemaInstruction(system string, schema *ports.ResponseSchema) string {
	if schema == nil {
		return system
	}
	instruction := "IMPORTANT: respond with a single valid JSON object and nothing else. " +
		"The object must conform to this JSON schema:\n" + string(schema.Schema)
	if system == "" {
		return instruction
	}
	return system + "\n\n" + instruction
}

// TokenCounter approximates token counts at a fixed characters-per-token
// ratio. It fills in when a provider omits usage data.
type TokenCounter struct {
	CharactersPerToken float64
}

func NewTokenCounter() *TokenCounter { return &TokenCounter{CharactersPerToken: 4} }

func (tc *TokenCounter) EstimateTokens(text string) int {
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount prefers a positive reported count over an estimate of text.
func (tc *TokenCounter) GetTokenCount(reported int, text string) int {
	if reported > 0 {
		return reported
	}
	return tc.EstimateTokens(text)
}

// ValidateBaseURL checks that baseURL is an absolute http or https URL.
// The empty string is accepted and means the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}
	u, err := url.Parse(baseURL)
	switch {
	case err != nil:
		return "", fmt.Errorf("invalid URL format: %w", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	case u.Host == "":
		return "", errors.New("URL must include a host")
	}
	return u.String(), nil
}

// ValidateTimeout clamps timeout into [MinTimeout, MaxTimeout]. Zero or
// negative returns zero, meaning no client-level timeout.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	return min(max(timeout, MinTimeout), MaxTimeout)
}
