package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-arena/internal/ports"
)

// MockLLMClient implements the LLMClient interface with configurable,
// deterministic behavior. It records every call so tests can assert how
// often and with which prompts a model was invoked, which is how
// resumability and caching are verified.
type MockLLMClient struct {
	// mu guards the recorded calls; tournament workers may invoke one
	// client concurrently.
	mu sync.Mutex

	// model is the mock model identifier returned by GetModel.
	model string

	// Response is the fixed completion returned when neither Err nor
	// ResponseFunc is set.
	Response string

	// ResponseFunc, when set, computes the completion from the prompt.
	// It takes precedence over Response.
	ResponseFunc func(prompt string) (string, error)

	// Err, when set, fails every Complete call. It takes precedence over
	// ResponseFunc and Response.
	Err error

	calls   int
	prompts []string
}

// NewMockLLMClient creates a mock client that answers every prompt with
// the given fixed response.
func NewMockLLMClient(model, response string) *MockLLMClient {
	return &MockLLMClient{model: model, Response: response}
}

// Complete records the call and returns the configured completion. A
// canceled context wins over any configured behavior, matching real
// clients.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if m.ResponseFunc != nil {
		return m.ResponseFunc(prompt)
	}
	return m.Response, nil
}

// EstimateTokens approximates four characters per token, with a minimum
// of one token for non-empty text.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens, nil
}

// GetModel returns the mock model identifier.
func (m *MockLLMClient) GetModel() string { return m.model }

// Calls reports how many times Complete has been invoked.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns a copy of every prompt Complete has received, in call
// order.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// MockClientSource implements the ClientSource interface over a fixed set
// of registered clients.
type MockClientSource struct {
	clients map[string]ports.LLMClient
}

// NewMockClientSource creates an empty client source.
func NewMockClientSource() *MockClientSource {
	return &MockClientSource{clients: make(map[string]ports.LLMClient)}
}

// Register associates a client with a model spec and returns the source
// for chaining.
func (s *MockClientSource) Register(spec string, client ports.LLMClient) *MockClientSource {
	s.clients[spec] = client
	return s
}

// GetClient returns the client registered for the spec, or an error for
// unknown specs so tests can exercise resolution failures.
func (s *MockClientSource) GetClient(spec string) (ports.LLMClient, error) {
	client, ok := s.clients[spec]
	if !ok {
		return nil, fmt.Errorf("no client registered for spec %q", spec)
	}
	return client, nil
}

// Verify interface compliance at compile time.
var (
	_ ports.LLMClient    = (*MockLLMClient)(nil)
	_ ports.ClientSource = (*MockClientSource)(nil)
)
