package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI provider constants.
const (
	// OpenAIDefaultModel is the model used when a spec names the provider
	// without a model.
	OpenAIDefaultModel = "gpt-3.5-turbo-1106"

	// openAIOrgEnvVar optionally scopes OpenAI requests to an organization.
	openAIOrgEnvVar = "OPENAI_ORGANIZATION"
)

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAICompatibleProvider implements the CoreLLM interface against any
// endpoint speaking the OpenAI chat completions protocol. The OpenAI
// provider uses it directly; other providers reuse it with their own
// name and base URL.
type openAICompatibleProvider struct {
	BaseProvider
	name            string
	client          *openai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newOpenAIProvider creates a new OpenAI provider instance.
// This factory function initializes the provider with configuration
// and validates required settings like API key presence.
func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.Model == "" {
		config.Model = OpenAIDefaultModel
	}
	return newOpenAICompatibleProvider("openai", os.Getenv(openAIOrgEnvVar), config)
}

// newOpenAICompatibleProvider builds a provider for an OpenAI-compatible
// endpoint. The orgID is passed through to the SDK when non-empty.
func newOpenAICompatibleProvider(name, orgID string, config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyAPIKey)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)

	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s base URL: %w", name, err)
		}
		clientConfig.BaseURL = validatedURL
	}

	if orgID != "" {
		clientConfig.OrgID = orgID
	}

	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{
			Timeout: ValidateTimeout(config.Timeout),
		}
	}

	p := &openAICompatibleProvider{
		name:            name,
		client:          openai.NewClientWithConfig(clientConfig),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: name},
	}
	p.SetModel(config.Model)

	return p, nil
}

// DoRequest sends a chat completion request and returns the response.
// It handles request formatting and response parsing, and returns the
// generated content along with token usage data.
func (p *openAICompatibleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	req := p.buildChatCompletionRequest(prompt, options)
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("%s: %w", p.name, ErrNoResponseChoice)
	}

	content := resp.Choices[0].Message.Content

	tokensIn := p.tokenCounter.GetTokenCount(resp.Usage.PromptTokens, prompt)
	tokensOut := p.tokenCounter.GetTokenCount(resp.Usage.CompletionTokens, content)

	return content, tokensIn, tokensOut, nil
}

// buildChatCompletionRequest creates an openai.ChatCompletionRequest from a prompt and options.
// This method orchestrates message building and the application of request parameters.
func (p *openAICompatibleProvider) buildChatCompletionRequest(prompt string, options RequestOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    options.Model,
		Messages: p.buildMessages(prompt, options),
	}

	p.applyRequestParameters(&req, options)
	return req
}

// buildMessages creates the message slice for a chat completion request.
// It constructs the messages from the user prompt and an optional system prompt.
func (p *openAICompatibleProvider) buildMessages(prompt string, options RequestOptions) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)

	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	return messages
}

// applyRequestParameters applies and validates optional parameters to the request.
// This method centralizes parameter validation and application logic.
func (p *openAICompatibleProvider) applyRequestParameters(req *openai.ChatCompletionRequest, options RequestOptions) {
	if options.Temperature != nil {
		temp := ClampFloat64(*options.Temperature, MinTemperature, MaxTemperature)
		req.Temperature = float32(temp)
	}

	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	if options.TopP != nil {
		topP := ClampFloat64(*options.TopP, MinTopP, MaxTopP)
		req.TopP = float32(topP)
	}

	// Handle provider-specific options.
	if frequencyPenalty, ok := options.Extra["frequency_penalty"]; ok {
		if penalty, valid := SafeFloat32(frequencyPenalty); valid {
			req.FrequencyPenalty = float32(ClampFloat64(float64(penalty), MinPenalty, MaxPenalty))
		}
	}

	if presencePenalty, ok := options.Extra["presence_penalty"]; ok {
		if penalty, valid := SafeFloat32(presencePenalty); valid {
			req.PresencePenalty = float32(ClampFloat64(float64(penalty), MinPenalty, MaxPenalty))
		}
	}
}

// handleError classifies and wraps errors from the API.
// It distinguishes between context-related errors, API errors, and other
// failures, wrapping them in standardized error types.
func (p *openAICompatibleProvider) handleError(err error) error {
	// Check for context errors first.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}

		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	// Fallback for generic or unknown errors.
	return NewProviderError(p.name, ErrorTypeUnknown, 0, "request failed", err)
}
