package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// TestNewGoogleProvider tests provider construction with valid and invalid
// credentials.
func TestNewGoogleProvider(t *testing.T) {
	tests := []struct {
		name          string
		config        ClientConfig
		expectError   bool
		expectedModel string
	}{
		{
			name:          "valid API key configuration",
			config:        ClientConfig{APIKey: "test-api-key", Model: "gemini-2.5-pro"},
			expectedModel: "gemini-2.5-pro",
		},
		{
			name:          "default model when not specified",
			config:        ClientConfig{APIKey: "test-api-key"},
			expectedModel: GoogleDefaultModel,
		},
		{
			name:        "file path authentication should error",
			config:      ClientConfig{APIKey: "/path/to/credentials.json"},
			expectError: true,
		},
		{
			name:        "empty API key should error",
			config:      ClientConfig{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := newGoogleProvider(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, provider)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedModel, provider.GetModel())
		})
	}
}

// TestBuildGenerationConfig verifies option translation into the Gemini
// generation config.
func TestBuildGenerationConfig(t *testing.T) {
	provider := &googleProvider{tokens: NewTokenCounter()}

	t.Run("defaults", func(t *testing.T) {
		config := provider.generationConfig(ParseRequestOptions(nil, "gemini"))
		assert.Nil(t, config.Temperature)
		assert.Nil(t, config.SystemInstruction)
		assert.Equal(t, int32(DefaultMaxTokens), config.MaxOutputTokens)
		assert.Empty(t, config.ResponseMIMEType)
	})

	t.Run("system and temperature", func(t *testing.T) {
		config := provider.generationConfig(ParseRequestOptions(map[string]any{
			ports.OptionSystem:      "Be terse.",
			ports.OptionTemperature: 0.0,
		}, "gemini"))
		require.NotNil(t, config.Temperature)
		assert.Equal(t, float32(0), *config.Temperature)
		require.NotNil(t, config.SystemInstruction)
		assert.Equal(t, "Be terse.", config.SystemInstruction.Parts[0].Text)
	})

	t.Run("response schema", func(t *testing.T) {
		schema := json.RawMessage(`{"type":"object"}`)
		config := provider.generationConfig(ParseRequestOptions(map[string]any{
			ports.OptionResponseSchema: ports.ResponseSchema{Name: "verdict", Schema: schema},
		}, "gemini"))
		assert.Equal(t, "application/json", config.ResponseMIMEType)
		assert.Equal(t, schema, config.ResponseJsonSchema)
	})
}

func TestGoogleProvider_HandleError(t *testing.T) {
	provider := &googleProvider{classifier: &ErrorClassifier{Provider: "google"}}

	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{
			name:     "safety block",
			err:      &googleapi.Error{Code: 400, Message: "Request blocked by safety settings"},
			wantType: ErrorTypeContentPolicy,
		},
		{
			name:     "rate limit",
			err:      &googleapi.Error{Code: 429, Message: "quota"},
			wantType: ErrorTypeRateLimit,
		},
		{
			name:     "genai api error",
			err:      genai.APIError{Code: 503, Message: "overloaded"},
			wantType: ErrorTypeServerError,
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			wantType: ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var provErr *ProviderError
			require.ErrorAs(t, provider.classify(tt.err), &provErr)
			assert.Equal(t, tt.wantType, provErr.Type)
		})
	}
}

func TestLooksLikeFilePath(t *testing.T) {
	assert.True(t, looksLikeFilePath("/etc/key.json"))
	assert.True(t, looksLikeFilePath("service-credentials"))
	assert.False(t, looksLikeFilePath("AIzaSyExample"))
}
