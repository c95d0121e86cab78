package application

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// Default bounds for the two worker pools.
const (
	// DefaultMaxWorkersQuestions is the default number of questions
	// processed concurrently.
	DefaultMaxWorkersQuestions = 5

	// DefaultMaxWorkersModels is the default number of participant
	// collections run concurrently within one question.
	DefaultMaxWorkersModels = 5
)

// configValidator caches struct metadata across Validate calls and
// carries the custom modelspec validation.
var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		panic(err)
	}
	return v
}

// TournamentConfig defines a complete tournament run: who competes, who
// adjudicates, what they are asked, and where results persist.
// Model fields hold registry specs of the form "provider" or
// "provider/model".
type TournamentConfig struct {
	// EvaluatorModel is the spec of the model that adjudicates every
	// pairwise comparison.
	EvaluatorModel string `yaml:"evaluator_model" validate:"required,modelspec"`

	// ParticipantModels lists the specs of the models being benchmarked.
	// List order fixes pair enumeration order, so it is part of the run's
	// identity; at least two distinct participants are required.
	ParticipantModels []string `yaml:"participant_models" validate:"required,min=2,unique,dive,modelspec"`

	// Questions holds the prompts sent to every participant. Question IDs
	// are one-based positions in this list and must stay stable for a
	// store that will be resumed.
	Questions []string `yaml:"questions" validate:"required,min=1,dive,required"`

	// MaxWorkersQuestions bounds the outer worker pool across questions.
	// Zero selects the default.
	MaxWorkersQuestions int `yaml:"max_workers_questions" validate:"min=0,max=128"`

	// MaxWorkersModels bounds the inner worker pool across participant
	// collections within a question. Zero selects the default.
	MaxWorkersModels int `yaml:"max_workers_models" validate:"min=0,max=128"`

	// EvalPrompt is the Go text template for the adjudication prompt.
	// It is executed with .Question, .ResponseA, and .ResponseB.
	EvalPrompt string `yaml:"eval_prompt" validate:"required"`

	// ResultsDB is the path of the SQLite store holding responses,
	// matches, and progress markers. Reusing a path resumes the run it
	// recorded.
	ResultsDB string `yaml:"results_db" validate:"required"`

	// RequestTimeoutSeconds bounds each provider request attempt. Zero
	// leaves requests without a per-attempt deadline.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds,omitempty" validate:"min=0"`

	// MetricsAddr optionally exposes a Prometheus /metrics endpoint on
	// the given listen address. Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// RateLimits optionally throttles requests per provider name.
	RateLimits map[string]RateLimitConfig `yaml:"rate_limits,omitempty" validate:"dive"`
}

// RateLimitConfig throttles one provider's request rate.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate shared by every
	// client of the provider.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"required,gt=0"`

	// Burst is the number of requests that may fire without waiting.
	// Zero selects a burst of one.
	Burst int `yaml:"burst" validate:"omitempty,min=1"`
}

// LoadConfig reads, parses, and validates a tournament configuration file.
// Every failure comes back as a ConfigError; configuration problems are
// fatal and the tournament never starts on a config it cannot fully
// validate.
func LoadConfig(path string) (*TournamentConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ports.NewConfigError(path, fmt.Errorf("failed to read file: %w", err))
	}

	config, err := parseConfig(data)
	if err != nil {
		return nil, ports.NewConfigError(path, err)
	}
	return config, nil
}

// parseConfig decodes YAML bytes, applies defaults, and validates.
// Decoding is strict so configuration typos surface instead of being
// silently ignored.
func parseConfig(data []byte) (*TournamentConfig, error) {
	var config TournamentConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SetDefaults fills unset worker bounds with their defaults.
func (c *TournamentConfig) SetDefaults() {
	if c.MaxWorkersQuestions <= 0 {
		c.MaxWorkersQuestions = DefaultMaxWorkersQuestions
	}
	if c.MaxWorkersModels <= 0 {
		c.MaxWorkersModels = DefaultMaxWorkersModels
	}
}

// Validate checks struct constraints and compiles the eval prompt
// template, so template syntax errors surface at load time rather than
// mid-tournament.
func (c *TournamentConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := template.New("evalPrompt").Parse(c.EvalPrompt); err != nil {
		return fmt.Errorf("eval_prompt template: %w", err)
	}
	return nil
}

// QuestionList materializes the configured questions with their one-based
// IDs.
func (c *TournamentConfig) QuestionList() []domain.Question {
	questions := make([]domain.Question, len(c.Questions))
	for i, text := range c.Questions {
		questions[i] = domain.Question{ID: i + 1, Text: text}
	}
	return questions
}
