package llm

// Together provider constants.
const (
	// TogetherDefaultModel is the model used when a spec names the provider
	// without a model.
	TogetherDefaultModel = "mistralai/Mistral-7B-Instruct-v0.2"

	// TogetherBaseURL is the Together inference endpoint, which speaks the
	// OpenAI chat completions protocol.
	TogetherBaseURL = "https://api.together.xyz/v1"
)

func init() {
	RegisterProviderFactory("together", newTogetherProvider)
}

// newTogetherProvider creates a provider for the Together inference API.
// Together exposes an OpenAI-compatible surface, so the provider reuses
// the OpenAI request path with its own endpoint and model defaults.
func newTogetherProvider(config ClientConfig) (CoreLLM, error) {
	if config.Model == "" {
		config.Model = TogetherDefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = TogetherBaseURL
	}
	return newOpenAICompatibleProvider("together", "", config)
}
