package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOpenAIMessage is the message portion of a mocked chat completion choice.
type mockOpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// mockOpenAIChoice is a single choice in a mocked chat completion response.
type mockOpenAIChoice struct {
	Index        int               `json:"index"`
	Message      mockOpenAIMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// mockOpenAIUsage is the token usage block of a mocked chat completion response.
type mockOpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// mockOpenAIResponse represents a mock response from the OpenAI API for testing.
type mockOpenAIResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []mockOpenAIChoice `json:"choices"`
	Usage   mockOpenAIUsage    `json:"usage"`
}

// newMockCompletionResponse builds a single-choice completion response with
// the given content and usage numbers.
func newMockCompletionResponse(content string, promptTokens, completionTokens int) mockOpenAIResponse {
	return mockOpenAIResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion",
		Created: 1677652288,
		Model:   OpenAIDefaultModel,
		Choices: []mockOpenAIChoice{
			{
				Index:        0,
				Message:      mockOpenAIMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: mockOpenAIUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

// TestOpenAIProvider_DoRequest tests the DoRequest method for the OpenAI provider.
// It verifies successful requests with and without optional parameters.
func TestOpenAIProvider_DoRequest(t *testing.T) {
	tests := []struct {
		name              string
		prompt            string
		opts              map[string]any
		mockResponse      mockOpenAIResponse
		expectedResponse  string
		expectedTokensIn  int
		expectedTokensOut int
		expectError       bool
		expectedErrIs     error
	}{
		{
			name:              "successful_basic_request",
			prompt:            "Hello, world!",
			opts:              nil,
			mockResponse:      newMockCompletionResponse("Hello! How can I help you today?", 10, 9),
			expectedResponse:  "Hello! How can I help you today?",
			expectedTokensIn:  10,
			expectedTokensOut: 9,
		},
		{
			name:   "request_with_system_prompt",
			prompt: "What's the weather like?",
			opts: map[string]any{
				"system":      "You are a helpful weather assistant.",
				"temperature": 0.7,
				"max_tokens":  100,
			},
			mockResponse:      newMockCompletionResponse("I cannot access live weather data.", 25, 8),
			expectedResponse:  "I cannot access live weather data.",
			expectedTokensIn:  25,
			expectedTokensOut: 8,
		},
		{
			name:          "empty_choices",
			prompt:        "Hello",
			opts:          nil,
			mockResponse:  mockOpenAIResponse{ID: "chatcmpl-empty", Object: "chat.completion"},
			expectError:   true,
			expectedErrIs: ErrNoResponseChoice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				require.NoError(t, json.NewEncoder(w).Encode(tt.mockResponse))
			}))
			defer server.Close()

			config := ClientConfig{
				APIKey:  "test-api-key",
				Model:   OpenAIDefaultModel,
				BaseURL: server.URL + "/v1",
			}

			provider, err := newOpenAIProvider(config)
			require.NoError(t, err)

			response, tokensIn, tokensOut, err := provider.DoRequest(context.Background(), tt.prompt, tt.opts)

			if tt.expectError {
				require.Error(t, err)
				if tt.expectedErrIs != nil {
					assert.ErrorIs(t, err, tt.expectedErrIs)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedResponse, response)
			assert.Equal(t, tt.expectedTokensIn, tokensIn)
			assert.Equal(t, tt.expectedTokensOut, tokensOut)
		})
	}
}

// TestOpenAIProvider_RequestShape decodes the request the provider sends and
// verifies the wire format: model, message ordering, and that the token cap
// is omitted when the caller did not ask for one.
func TestOpenAIProvider_RequestShape(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(newMockCompletionResponse("ok", 5, 1)))
	}))
	defer server.Close()

	config := ClientConfig{
		APIKey:  "test-api-key",
		BaseURL: server.URL + "/v1",
	}

	provider, err := newOpenAIProvider(config)
	require.NoError(t, err)

	t.Run("uncapped_request_omits_max_tokens", func(t *testing.T) {
		captured = nil
		_, _, _, err := provider.DoRequest(context.Background(), "test prompt", map[string]any{
			"temperature": 0.7,
		})
		require.NoError(t, err)

		assert.Equal(t, OpenAIDefaultModel, captured["model"])

		_, hasMaxTokens := captured["max_tokens"]
		assert.False(t, hasMaxTokens, "max_tokens should be absent when no cap was requested")

		temp, ok := captured["temperature"].(float64)
		require.True(t, ok)
		assert.InDelta(t, 0.7, temp, 0.001)
	})

	t.Run("system_prompt_precedes_user_message", func(t *testing.T) {
		captured = nil
		_, _, _, err := provider.DoRequest(context.Background(), "What is 2+2?", map[string]any{
			"system": "You are a math assistant.",
		})
		require.NoError(t, err)

		messages, ok := captured["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)

		first, ok := messages[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "You are a math assistant.", first["content"])

		second, ok := messages[1].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "user", second["role"])
		assert.Equal(t, "What is 2+2?", second["content"])
	})
}

// TestOpenAIProvider_ErrorHandling tests the error handling capabilities of the OpenAI provider.
// It ensures that API errors, such as authentication and rate limiting, are classified correctly.
func TestOpenAIProvider_ErrorHandling(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		responseBody   string
		expectedType   ErrorType
		expectedErrMsg string
		retryable      bool
	}{
		{
			name:       "authentication_error",
			statusCode: 401,
			responseBody: `{
				"error": {
					"message": "Invalid API key provided",
					"type": "invalid_request_error",
					"code": "invalid_api_key"
				}
			}`,
			expectedType:   ErrorTypeAuthentication,
			expectedErrMsg: "authentication failed",
			retryable:      false,
		},
		{
			name:       "rate_limit_error",
			statusCode: 429,
			responseBody: `{
				"error": {
					"message": "Rate limit exceeded",
					"type": "insufficient_quota",
					"code": "rate_limit_exceeded"
				}
			}`,
			expectedType:   ErrorTypeRateLimit,
			expectedErrMsg: "rate limit exceeded",
			retryable:      true,
		},
		{
			name:       "server_error",
			statusCode: 500,
			responseBody: `{
				"error": {
					"message": "Internal server error",
					"type": "server_error"
				}
			}`,
			expectedType:   ErrorTypeServerError,
			expectedErrMsg: "server error",
			retryable:      true,
		},
		{
			name:       "model_not_found",
			statusCode: 404,
			responseBody: `{
				"error": {
					"message": "The model does not exist",
					"type": "invalid_request_error"
				}
			}`,
			expectedType:   ErrorTypeNotFound,
			expectedErrMsg: "does not exist",
			retryable:      false,
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

			config := ClientConfig{
				APIKey:  "test-api-key",
				Model:   OpenAIDefaultModel,
				BaseURL: server.URL + "/v1",
			}

			provider, err := newOpenAIProvider(config)
			require.NoError(t, err)

			_, _, _, err = provider.DoRequest(context.Background(), "test prompt", nil)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.expectedType, provErr.Type)
			assert.Equal(t, tt.statusCode, provErr.StatusCode)
			assert.Equal(t, tt.retryable, provErr.IsRetryable())
		})
	}
}

// TestOpenAIProvider_ContextCancellation verifies that the OpenAI provider
// correctly handles request cancellation through context.
func TestOpenAIProvider_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Server handler should not be called due to context cancellation")
	}))
	defer server.Close()

	config := ClientConfig{
		APIKey:  "test-api-key",
		Model:   OpenAIDefaultModel,
		BaseURL: server.URL + "/v1",
	}

	provider, err := newOpenAIProvider(config)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err = provider.DoRequest(ctx, "test prompt", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestOpenAIProvider_Configuration validates the configuration handling
// for the OpenAI provider, including API key validation and model management.
func TestOpenAIProvider_Configuration(t *testing.T) {
	t.Run("missing_api_key", func(t *testing.T) {
		config := ClientConfig{
			Model: OpenAIDefaultModel,
		}

		_, err := newOpenAIProvider(config)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyAPIKey)
	})

	t.Run("default_model", func(t *testing.T) {
		config := ClientConfig{
			APIKey: "test-key",
		}

		provider, err := newOpenAIProvider(config)
		require.NoError(t, err)
		assert.Equal(t, OpenAIDefaultModel, provider.GetModel())
	})

	t.Run("custom_model", func(t *testing.T) {
		config := ClientConfig{
			APIKey: "test-key",
			Model:  "gpt-4",
		}

		provider, err := newOpenAIProvider(config)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4", provider.GetModel())
	})

	t.Run("model_update", func(t *testing.T) {
		config := ClientConfig{
			APIKey: "test-key",
			Model:  "gpt-4",
		}

		provider, err := newOpenAIProvider(config)
		require.NoError(t, err)

		provider.SetModel("gpt-4o-mini")
		assert.Equal(t, "gpt-4o-mini", provider.GetModel())
	})

	t.Run("invalid_base_url", func(t *testing.T) {
		config := ClientConfig{
			APIKey:  "test-key",
			BaseURL: "not a url://",
		}

		_, err := newOpenAIProvider(config)
		assert.Error(t, err)
	})
}

// TestOpenAIProvider_TokenFallback verifies that token counts fall back to
// estimation when the API response omits usage data.
func TestOpenAIProvider_TokenFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := newMockCompletionResponse("A response without usage data.", 0, 0)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	defer server.Close()

	config := ClientConfig{
		APIKey:  "test-api-key",
		Model:   OpenAIDefaultModel,
		BaseURL: server.URL + "/v1",
	}

	provider, err := newOpenAIProvider(config)
	require.NoError(t, err)

	prompt := "Estimate the tokens for this prompt."
	response, tokensIn, tokensOut, err := provider.DoRequest(context.Background(), prompt, nil)
	require.NoError(t, err)

	counter := NewTokenCounter()
	assert.Equal(t, counter.EstimateTokens(prompt), tokensIn)
	assert.Equal(t, counter.EstimateTokens(response), tokensOut)
}

// TestOpenAIProvider_Performance tests the provider under concurrent requests.
func TestOpenAIProvider_Performance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(newMockCompletionResponse("Test response", 5, 2)); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	config := ClientConfig{
		APIKey:  "test-key",
		Model:   OpenAIDefaultModel,
		BaseURL: server.URL + "/v1",
	}

	provider, err := newOpenAIProvider(config)
	require.NoError(t, err)

	t.Run("concurrent_requests", func(t *testing.T) {
		const numRequests = 10
		responses := make(chan struct{}, numRequests)

		for i := 0; i < numRequests; i++ {
			go func(id int) {
				_, _, _, err := provider.DoRequest(
					context.Background(),
					fmt.Sprintf("Request %d", id),
					nil,
				)
				assert.NoError(t, err)
				responses <- struct{}{}
			}(i)
		}

		for i := 0; i < numRequests; i++ {
			<-responses
		}
	})
}

// TestOpenAIProvider_TypeSafety ensures that the provider handles unexpected
// data types for options gracefully rather than panicking.
func TestOpenAIProvider_TypeSafety(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(newMockCompletionResponse("Test response", 5, 2)))
	}))
	defer server.Close()

	config := ClientConfig{
		APIKey:  "test-key",
		Model:   OpenAIDefaultModel,
		BaseURL: server.URL + "/v1",
	}

	provider, err := newOpenAIProvider(config)
	require.NoError(t, err)

	tests := []struct {
		name string
		opts map[string]any
	}{
		{
			name: "out_of_range_values_ignored_or_clamped",
			opts: map[string]any{
				"temperature":       3.0, // above the valid range, ignored
				"top_p":             1.5, // above the valid range, ignored
				"frequency_penalty": 3.0, // clamped to the penalty range
				"presence_penalty":  -3.0,
			},
		},
		{
			name: "invalid_types_ignored",
			opts: map[string]any{
				"temperature":       "invalid",
				"max_tokens":        "100",
				"top_p":             []int{1, 2, 3},
				"frequency_penalty": map[string]string{"a": "b"},
				"system":            12345,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, _, _, err := provider.DoRequest(context.Background(), "test prompt", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, "Test response", response)
		})
	}
}

// TestBuildMessages verifies message construction from a prompt and options.
func TestBuildMessages(t *testing.T) {
	provider := &openAICompatibleProvider{name: "openai"}

	t.Run("user_message_only", func(t *testing.T) {
		messages := provider.buildMessages("Hello", RequestOptions{})

		require.Len(t, messages, 1)
		assert.Equal(t, openai.ChatMessageRoleUser, messages[0].Role)
		assert.Equal(t, "Hello", messages[0].Content)
	})

	t.Run("system_then_user", func(t *testing.T) {
		messages := provider.buildMessages("Hello", RequestOptions{System: "Be terse."})

		require.Len(t, messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
		assert.Equal(t, "Be terse.", messages[0].Content)
		assert.Equal(t, openai.ChatMessageRoleUser, messages[1].Role)
	})
}

// TestApplyRequestParameters verifies parameter validation and clamping when
// building a chat completion request.
func TestApplyRequestParameters(t *testing.T) {
	provider := &openAICompatibleProvider{name: "openai"}

	t.Run("empty_options_leave_zero_values", func(t *testing.T) {
		req := openai.ChatCompletionRequest{}
		provider.applyRequestParameters(&req, RequestOptions{})

		assert.Zero(t, req.Temperature)
		assert.Zero(t, req.MaxTokens)
		assert.Zero(t, req.TopP)
	})

	t.Run("temperature_and_top_p_applied", func(t *testing.T) {
		temp := 0.7
		topP := 0.9
		req := openai.ChatCompletionRequest{}
		provider.applyRequestParameters(&req, RequestOptions{
			Temperature: &temp,
			TopP:        &topP,
		})

		assert.InDelta(t, 0.7, req.Temperature, 0.001)
		assert.InDelta(t, 0.9, req.TopP, 0.001)
	})

	t.Run("max_tokens_only_set_when_positive", func(t *testing.T) {
		req := openai.ChatCompletionRequest{}
		provider.applyRequestParameters(&req, RequestOptions{MaxTokens: 0})
		assert.Zero(t, req.MaxTokens)

		provider.applyRequestParameters(&req, RequestOptions{MaxTokens: 512})
		assert.Equal(t, 512, req.MaxTokens)
	})

	t.Run("penalties_clamped", func(t *testing.T) {
		req := openai.ChatCompletionRequest{}
		provider.applyRequestParameters(&req, RequestOptions{
			Extra: map[string]any{
				"frequency_penalty": 3.5,
				"presence_penalty":  -3.5,
			},
		})

		assert.InDelta(t, MaxPenalty, float64(req.FrequencyPenalty), 0.001)
		assert.InDelta(t, MinPenalty, float64(req.PresencePenalty), 0.001)
	})
}
