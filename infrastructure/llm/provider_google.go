package llm

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when ClientConfig.Model is empty.
const GoogleDefaultModel = "gemini-2.5-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider calls the Gemini API with an API key. Response schemas
// use Gemini's native JSON schema support.
type googleProvider struct {
	BaseProvider
	client     *genai.Client
	tokens     *TokenCounter
	classifier *ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if looksLikeFilePath(config.APIKey) {
		return nil, errors.New("google: credential files are not supported, set GOOGLE_API_KEY to an API key")
	}

	cc := &genai.ClientConfig{APIKey: config.APIKey, Backend: genai.BackendGeminiAPI}
	if config.BaseURL != "" {
		base, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.HTTPOptions.BaseURL = base
	}
	if timeout := ValidateTimeout(config.Timeout); timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: timeout}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &googleProvider{
		BaseProvider: BaseProvider{model: cmp.Or(config.Model, GoogleDefaultModel)},
		client:       client,
		tokens:       NewTokenCounter(),
		classifier:   &ErrorClassifier{Provider: "google"},
	}, nil
}

func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	o := ParseRequestOptions(opts, p.GetModel())
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, o.Model, contents, p.generationConfig(o))
	if err != nil {
		return "", 0, 0, p.classify(err)
	}

	text := resp.Text()
	if text == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	var in, out int
	if u := resp.UsageMetadata; u != nil {
		in, out = int(u.PromptTokenCount), int(u.CandidatesTokenCount)
	}
	return text, p.tokens.GetTokenCount(in, prompt), p.tokens.GetTokenCount(out, text), nil
}

func (p *googleProvider) generationConfig(o RequestOptions) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(min(o.MaxTokens, math.MaxInt32)),
	}
	if o.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(o.System, genai.RoleUser)
	}
	if o.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*o.Temperature))
	}
	if o.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseJsonSchema = o.Schema.Schema
	}
	return gc
}

func (p *googleProvider) classify(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if blockedBySafety(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code, "request blocked by safety filters", err)
		}
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return p.classifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return p.classifier.ClassifyHTTPError(genaiErr.Code, genaiErr.Message, err)
	}
	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

// looksLikeFilePath reports whether an API key setting is really a path to
// a service account file.
func looksLikeFilePath(s string) bool {
	if filepath.IsAbs(s) || strings.ContainsAny(s, `/\`) {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "credentials") ||
		slices.ContainsFunc([]string{".json", ".p12", ".pem"}, func(ext string) bool {
			return strings.HasSuffix(lower, ext)
		})
}

func blockedBySafety(apiErr *googleapi.Error) bool {
	lower := strings.ToLower(apiErr.Message)
	for _, word := range []string{"safety", "policy", "blocked"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return slices.ContainsFunc(apiErr.Errors, func(e googleapi.ErrorItem) bool {
		return e.Reason == "SAFETY" || e.Reason == "BLOCKED"
	})
}
