// Package llm adapts the hosted model APIs used for response generation and
// grading (OpenAI, Anthropic, Google) to ports.LLMClient.
//
// A provider implements CoreLLM and registers itself by name. A Client is a
// provider wrapped in a chain of Middleware:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: key,
//	    Model:  "claude-sonnet-4-0",
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("gavel-bench"),
//	        llm.MetricsMiddleware("anthropic", metrics),
//	        llm.TimeoutMiddleware(time.Minute),
//	    },
//	})
//
// Failed calls are returned as is. There is no retry layer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// CoreLLM is a single provider endpoint. DoRequest returns the generated
// text together with the input and output token counts.
type CoreLLM interface {
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)
	GetModel() string
	SetModel(model string)
}

// Middleware decorates a CoreLLM.
type Middleware func(CoreLLM) CoreLLM

// TokenEstimator approximates token counts for text.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig configures NewClient.
type ClientConfig struct {
	APIKey string
	Model  string

	// BaseURL replaces the provider's default endpoint when set.
	BaseURL string

	// Timeout bounds the provider's HTTP client. Zero leaves it unset.
	Timeout time.Duration

	// TokenEstimator defaults to a TokenCounter.
	TokenEstimator TokenEstimator

	// Middleware[0] is the outermost layer.
	Middleware []Middleware
}

// ProviderFactory builds a provider from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory makes a provider available to NewClient under name.
// It is not safe for concurrent use and is meant to be called from init.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	providerFactories[name] = factory
}

// Client is a ports.LLMClient backed by a middleware-wrapped provider.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds the named provider and wraps it in config.Middleware.
func NewClient(provider string, config ClientConfig) (*Client, error) {
	switch {
	case config.APIKey == "":
		return nil, ErrEmptyAPIKey
	case config.Model == "":
		return nil, errors.New("model is required")
	}

	factory, ok := providerFactories[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", provider, err)
	}
	return NewClientFromCore(core, config), nil
}

// NewClientFromCore wraps an existing provider. Only the Middleware and
// TokenEstimator fields of config are used.
func NewClientFromCore(core CoreLLM, config ClientConfig) *Client {
	c := &Client{core: chain(core, config.Middleware), estimator: config.TokenEstimator}
	if c.estimator == nil {
		c.estimator = NewTokenCounter()
	}
	return c
}

func chain(core CoreLLM, layers []Middleware) CoreLLM {
	for i := len(layers) - 1; i >= 0; i-- {
		core = layers[i](core)
	}
	return core
}

func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	text, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return text, err
}

// CompleteWithUsage is Complete plus the token counts reported by the provider.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

func (c *Client) GetModel() string { return c.core.GetModel() }
