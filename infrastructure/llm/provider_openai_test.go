package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// openAIChatResponse renders a minimal chat completion body.
func openAIChatResponse(content string, promptTokens, completionTokens int) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1677652288,
		"model":   "gpt-4.1",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}
}

// newOpenAITestServer starts a server that records the decoded request body
// and answers with resp.
func newOpenAITestServer(t *testing.T, resp map[string]any, captured *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

// TestOpenAIProvider_DoRequest tests the DoRequest method for the OpenAI provider.
func TestOpenAIProvider_DoRequest(t *testing.T) {
	tests := []struct {
		name              string
		opts              map[string]any
		content           string
		promptTokens      int
		completionTokens  int
		expectedTokensIn  int
		expectedTokensOut int
		checkRequest      func(t *testing.T, body map[string]any)
	}{
		{
			name:              "basic request",
			content:           "Hello! How can I help you today?",
			promptTokens:      10,
			completionTokens:  9,
			expectedTokensIn:  10,
			expectedTokensOut: 9,
			checkRequest: func(t *testing.T, body map[string]any) {
				messages := body["messages"].([]any)
				assert.Len(t, messages, 1)
				assert.Nil(t, body["response_format"])
			},
		},
		{
			name: "system prompt and temperature",
			opts: map[string]any{
				ports.OptionSystem:      "You are a strict grader.",
				ports.OptionTemperature: 0.0,
				ports.OptionMaxTokens:   100,
			},
			content:           "ok",
			promptTokens:      25,
			completionTokens:  1,
			expectedTokensIn:  25,
			expectedTokensOut: 1,
			checkRequest: func(t *testing.T, body map[string]any) {
				messages := body["messages"].([]any)
				require.Len(t, messages, 2)
				assert.Equal(t, "system", messages[0].(map[string]any)["role"])
				assert.Equal(t, float64(100), body["max_tokens"])
			},
		},
		{
			name: "structured output",
			opts: map[string]any{
				ports.OptionResponseSchema: ports.ResponseSchema{
					Name:   "rubric_verdict",
					Schema: json.RawMessage(`{"type":"object"}`),
					Strict: true,
				},
			},
			content:           `{"q1":"fine","q1_score":3,"total_score":3}`,
			promptTokens:      30,
			completionTokens:  12,
			expectedTokensIn:  30,
			expectedTokensOut: 12,
			checkRequest: func(t *testing.T, body map[string]any) {
				format := body["response_format"].(map[string]any)
				assert.Equal(t, "json_schema", format["type"])
				schema := format["json_schema"].(map[string]any)
				assert.Equal(t, "rubric_verdict", schema["name"])
				assert.Equal(t, true, schema["strict"])
				assert.Equal(t, map[string]any{"type": "object"}, schema["schema"])
			},
		},
		{
			name:              "token fallback when usage is missing",
			content:           "twelve chars",
			expectedTokensIn:  3,
			expectedTokensOut: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			server := newOpenAITestServer(t, openAIChatResponse(tt.content, tt.promptTokens, tt.completionTokens), &body)

			provider, err := newOpenAIProvider(ClientConfig{
				APIKey:  "test-api-key",
				Model:   "gpt-4.1",
				BaseURL: server.URL + "/v1",
			})
			require.NoError(t, err)

			response, tokensIn, tokensOut, err := provider.DoRequest(context.Background(), "Hello, world", tt.opts)
			require.NoError(t, err)

			assert.Equal(t, tt.content, response)
			assert.Equal(t, tt.expectedTokensIn, tokensIn)
			assert.Equal(t, tt.expectedTokensOut, tokensOut)
			assert.Equal(t, "gpt-4.1", body["model"])
			if tt.checkRequest != nil {
				tt.checkRequest(t, body)
			}
		})
	}
}

// TestOpenAIProvider_ErrorHandling verifies API errors are classified.
func TestOpenAIProvider_ErrorHandling(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody string
		wantType     ErrorType
		wantMsg      string
	}{
		{
			name:         "authentication error",
			statusCode:   401,
			responseBody: `{"error":{"message":"Invalid API key provided","type":"invalid_request_error"}}`,
			wantType:     ErrorTypeAuthentication,
			wantMsg:      "authentication failed",
		},
		{
			name:         "rate limit error",
			statusCode:   429,
			responseBody: `{"error":{"message":"Rate limit exceeded","type":"insufficient_quota"}}`,
			wantType:     ErrorTypeRateLimit,
			wantMsg:      "rate limit exceeded",
		},
		{
			name:         "server error",
			statusCode:   500,
			responseBody: `{"error":{"message":"Internal server error","type":"server_error"}}`,
			wantType:     ErrorTypeServerError,
			wantMsg:      "server_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.responseBody)
			}))
			defer server.Close()

			provider, err := newOpenAIProvider(ClientConfig{
				APIKey:  "test-api-key",
				Model:   "gpt-4.1",
				BaseURL: server.URL + "/v1",
			})
			require.NoError(t, err)

			_, _, _, err = provider.DoRequest(context.Background(), "test prompt", nil)
			require.Error(t, err)

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.wantType, provErr.Type)
			assert.Equal(t, tt.statusCode, provErr.StatusCode)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	resp := openAIChatResponse("", 1, 1)
	resp["choices"] = []map[string]any{}
	server := newOpenAITestServer(t, resp, nil)

	provider, err := newOpenAIProvider(ClientConfig{APIKey: "k", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, _, _, err = provider.DoRequest(context.Background(), "prompt", nil)
	assert.ErrorIs(t, err, ErrNoResponseChoice)
}

// TestOpenAIProvider_ContextCancellation verifies that a cancelled context
// is reported as a network error without reaching the server.
func TestOpenAIProvider_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Server handler should not be called due to context cancellation")
	}))
	defer server.Close()

	provider, err := newOpenAIProvider(ClientConfig{
		APIKey:  "test-api-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err = provider.DoRequest(ctx, "test prompt", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, ErrorTypeNetwork, provErr.Type)
}

// TestOpenAIProvider_Configuration validates API key validation and model management.
func TestOpenAIProvider_Configuration(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		_, err := newOpenAIProvider(ClientConfig{Model: "gpt-4.1"})
		assert.ErrorIs(t, err, ErrEmptyAPIKey)
	})

	t.Run("default model", func(t *testing.T) {
		provider, err := newOpenAIProvider(ClientConfig{APIKey: "test-key"})
		require.NoError(t, err)
		assert.Equal(t, OpenAIDefaultModel, provider.GetModel())
	})

	t.Run("invalid base url", func(t *testing.T) {
		_, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", BaseURL: "ftp://example.com"})
		assert.Error(t, err)
	})

	t.Run("model update", func(t *testing.T) {
		provider, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", Model: "gpt-4.1"})
		require.NoError(t, err)

		provider.SetModel("gpt-4.1-mini")
		assert.Equal(t, "gpt-4.1-mini", provider.GetModel())
	})
}
