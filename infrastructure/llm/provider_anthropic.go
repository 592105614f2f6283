package llm

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is used when ClientConfig.Model is empty.
const AnthropicDefaultModel = "claude-sonnet-4-20250514"

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider calls the Messages API. The API has no schema-constrained
// output, so a response schema is spelled out in the system prompt.
type anthropicProvider struct {
	BaseProvider
	client     anthropic.Client
	tokens     *TokenCounter
	classifier *ErrorClassifier
}

func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyAPIKey)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// A failed call aborts the whole batch; SDK retries would only delay that.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		base, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if timeout := ValidateTimeout(config.Timeout); timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &anthropicProvider{
		BaseProvider: BaseProvider{model: cmp.Or(config.Model, AnthropicDefaultModel)},
		client:       anthropic.NewClient(opts...),
		tokens:       NewTokenCounter(),
		classifier:   &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	o := ParseRequestOptions(opts, p.GetModel())
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(o.Model),
		MaxTokens: int64(o.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	}
	if o.Temperature != nil {
		// Messages API range is [0, 1].
		params.Temperature = anthropic.Float(min(*o.Temperature, 1))
	}
	if system := schemaInstruction(o.System, o.Schema); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, p.classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return "", 0, 0, ErrEmptyResponse
	}
	return text,
		p.tokens.GetTokenCount(int(msg.Usage.InputTokens), prompt),
		p.tokens.GetTokenCount(int(msg.Usage.OutputTokens), text),
		nil
}

func (p *anthropicProvider) classify(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.StatusCode, "request failed", err)
	}
	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}
