package llm

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when ClientConfig.Model is empty.
const OpenAIDefaultModel = "gpt-4.1"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider talks to the chat completions endpoint. Response schemas
// map onto the native json_schema response format.
type openAIProvider struct {
	BaseProvider
	client     *openai.Client
	tokens     *TokenCounter
	classifier *ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		base, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.BaseURL = base
	}
	if config.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: ValidateTimeout(config.Timeout)}
	}

	return &openAIProvider{
		BaseProvider: BaseProvider{model: cmp.Or(config.Model, OpenAIDefaultModel)},
		client:       openai.NewClientWithConfig(cc),
		tokens:       NewTokenCounter(),
		classifier:   &ErrorClassifier{Provider: "openai"},
	}, nil
}

func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.chatRequest(prompt, ParseRequestOptions(opts, p.GetModel())))
	if err != nil {
		return "", 0, 0, p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", 0, 0, ErrEmptyResponse
	}
	return text,
		p.tokens.GetTokenCount(resp.Usage.PromptTokens, prompt),
		p.tokens.GetTokenCount(resp.Usage.CompletionTokens, text),
		nil
}

func (p *openAIProvider) chatRequest(prompt string, o RequestOptions) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if o.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:     o.Model,
		Messages:  messages,
		MaxTokens: o.MaxTokens,
	}
	if o.Temperature != nil {
		req.Temperature = float32(*o.Temperature)
	}
	if s := o.Schema; s != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        s.Name,
				Description: s.Description,
				Schema:      s.Schema,
				Strict:      s.Strict,
			},
		}
	}
	return req
}

func (p *openAIProvider) classify(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, cmp.Or(apiErr.Message, "unknown error"), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return p.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err)
	}
	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}
