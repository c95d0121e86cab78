package llm

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-arena/internal/ports"
)

// Registry provides multi-provider management for LLM clients.
// It resolves "provider" or "provider/model" specs to ready clients,
// creating them lazily and caching them for reuse. Participant and
// evaluator specs both route through here.
type Registry struct {
	// providers maps provider names to their configuration.
	providers map[string]ProviderConfig
	// clients maps "provider/model" keys to their respective LLMClient
	// implementations. Each client carries its own middleware chain.
	clients map[string]ports.LLMClient
	// defaultMiddleware is applied to every provider before any
	// provider-specific middleware.
	defaultMiddleware []Middleware
	// defaultTimeout sets the request timeout for all providers.
	defaultTimeout time.Duration
	// mu provides thread-safe access to the client cache.
	mu sync.RWMutex
}

var _ ports.ClientSource = (*Registry)(nil)

// ProviderConfig holds provider-specific configuration.
// This struct allows fine-grained control over individual provider settings,
// overriding registry defaults for specific providers.
type ProviderConfig struct {
	// Type specifies the provider implementation type
	// (anthropic, openai, google, together).
	Type string
	// EnvVar specifies the environment variable name for the API key.
	EnvVar string
	// DefaultModel specifies the model to use when a spec omits one.
	DefaultModel string
	// SupportedModels lists all models accepted for this provider.
	// If empty, no validation is performed and any model is allowed.
	SupportedModels []string
	// BaseURL overrides the default API endpoint for the provider.
	BaseURL string
	// Middleware specifies provider-specific middleware.
	Middleware []Middleware
}

// RegistryConfig holds configuration for the provider registry.
// This struct defines default settings that are applied to all providers
// unless overridden by provider-specific configuration.
type RegistryConfig struct {
	// Providers defines the available providers and their configurations.
	Providers map[string]ProviderConfig
	// DefaultTimeout sets the request timeout for all providers.
	DefaultTimeout time.Duration
	// DefaultMiddleware specifies middleware applied to all providers.
	DefaultMiddleware []Middleware
}

// DefaultProviders wires the supported providers with their credential
// environment variables and default models. Applications can clone this
// map and attach middleware before building a registry.
var DefaultProviders = map[string]ProviderConfig{
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
	},
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: GoogleDefaultModel,
	},
	"together": {
		Type:         "together",
		EnvVar:       "TOGETHER_API_KEY",
		DefaultModel: TogetherDefaultModel,
		BaseURL:      TogetherBaseURL,
	},
}

// NewRegistry creates a new provider registry.
// Every configured provider type must have a registered factory; a typo in
// a provider type is a configuration error and surfaces here rather than
// at resolution time.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if len(config.Providers) == 0 {
		return nil, fmt.Errorf("registry requires at least one provider")
	}

	for name, providerConfig := range config.Providers {
		if providerConfig.Type == "" {
			return nil, fmt.Errorf("provider %q has no type", name)
		}
		if _, ok := providerFactories[providerConfig.Type]; !ok {
			return nil, fmt.Errorf("provider %q: %w: no factory for type %q",
				name, ErrUnknownProvider, providerConfig.Type)
		}
	}

	return &Registry{
		providers:         config.Providers,
		clients:           make(map[string]ports.LLMClient),
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    ValidateTimeout(config.DefaultTimeout),
	}, nil
}

// GetClient retrieves a client by provider name or model string.
// Supports multiple formats:
//   - "provider": Returns client for specified provider with default model
//   - "provider/model": Returns client for specified provider and model
//
// The method creates clients lazily on first request and caches them for
// reuse; each unique provider/model combination gets its own client instance.
func (r *Registry) GetClient(spec string) (ports.LLMClient, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty")
	}

	provider, model := r.parseSpec(spec)

	key := r.buildCacheKey(provider, model)

	r.mu.RLock()
	if client, exists := r.clients[key]; exists {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[key]; exists {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}

	r.clients[key] = client
	return client, nil
}

// parseSpec extracts provider name and model from a specification string.
// Supports formats:
//   - "provider" -> (provider, defaultModel)
//   - "provider/model" -> (provider, model)
//
// The model portion may itself contain slashes for providers that
// namespace model names.
func (r *Registry) parseSpec(spec string) (provider, model string) {
	parts := strings.SplitN(spec, "/", 2)
	provider = parts[0]

	if len(parts) > 1 {
		model = parts[1]
	} else if providerConfig, ok := r.providers[provider]; ok {
		model = providerConfig.DefaultModel
	}

	return
}

// buildCacheKey creates a consistent cache key from provider and model.
func (r *Registry) buildCacheKey(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + "/" + model
}

// createClient creates a new client instance for the given provider and model.
// It handles environment variable loading, configuration merging, model
// validation, and client initialization.
func (r *Registry) createClient(provider, model string) (ports.LLMClient, error) {
	providerConfig, exists := r.providers[provider]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	if len(providerConfig.SupportedModels) > 0 {
		if !isModelSupported(model, providerConfig.SupportedModels) {
			return nil, fmt.Errorf("%w: %q is not supported by provider %q",
				ErrInvalidModel, model, provider)
		}
	}

	apiKey := os.Getenv(providerConfig.EnvVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider %q: %w",
			providerConfig.EnvVar, provider, ErrEmptyAPIKey)
	}

	config := ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: providerConfig.BaseURL,
		Timeout: r.defaultTimeout,
	}

	config.Middleware = append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(config.Middleware, providerConfig.Middleware...)

	return NewClient(providerConfig.Type, config)
}

// isModelSupported checks if a model is in the supported models list.
func isModelSupported(model string, supportedModels []string) bool {
	for _, supportedModel := range supportedModels {
		if model == supportedModel {
			return true
		}
	}
	return false
}
