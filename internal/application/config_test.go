package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

const validConfigYAML = `
evaluator_model: "anthropic/claude-sonnet"
participant_models:
  - "openai/gpt-4o"
  - "google/gemini-pro"
questions:
  - "What causes tides?"
  - "Explain photosynthesis."
eval_prompt: |
  Question: {{.Question}}
  Response A: {{.ResponseA}}
  Response B: {{.ResponseB}}
  Reply with <answer>A</answer> or <answer>B</answer>.
results_db: "results.db"
`

// TestLoadConfig verifies file loading end to end: a valid file parses
// with defaults applied, and every failure mode surfaces as a ConfigError
// carrying the offending path.
func TestLoadConfig(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tournament.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o600))

		config, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "anthropic/claude-sonnet", config.EvaluatorModel)
		assert.Equal(t, []string{"openai/gpt-4o", "google/gemini-pro"}, config.ParticipantModels)
		assert.Len(t, config.Questions, 2)
		assert.Equal(t, "results.db", config.ResultsDB)
		assert.Equal(t, DefaultMaxWorkersQuestions, config.MaxWorkersQuestions)
		assert.Equal(t, DefaultMaxWorkersModels, config.MaxWorkersModels)
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.yaml")

		_, err := LoadConfig(path)
		require.Error(t, err)

		var cfgErr *ports.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, path, cfgErr.Path)
	})

	t.Run("invalid content carries path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("evaluator_model: [not, a, string"), 0o600))

		_, err := LoadConfig(path)
		require.Error(t, err)

		var cfgErr *ports.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, path, cfgErr.Path)
	})
}

// TestParseConfig covers strict decoding and validation. Unknown fields
// are rejected rather than ignored, and each structural constraint names
// its field in the error.
func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		errMsg  string
		verify  func(t *testing.T, config *TournamentConfig)
	}{
		{
			name:    "valid minimal config",
			yaml:    validConfigYAML,
			wantErr: false,
			verify: func(t *testing.T, config *TournamentConfig) {
				assert.Equal(t, DefaultMaxWorkersQuestions, config.MaxWorkersQuestions)
				assert.Equal(t, DefaultMaxWorkersModels, config.MaxWorkersModels)
				assert.Empty(t, config.MetricsAddr)
				assert.Empty(t, config.RateLimits)
			},
		},
		{
			name: "explicit worker bounds preserved",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "b/two"]
questions: ["Q"]
max_workers_questions: 2
max_workers_models: 9
request_timeout_seconds: 120
eval_prompt: "{{.Question}} {{.ResponseA}} {{.ResponseB}}"
results_db: "out.db"
`,
			wantErr: false,
			verify: func(t *testing.T, config *TournamentConfig) {
				assert.Equal(t, 2, config.MaxWorkersQuestions)
				assert.Equal(t, 9, config.MaxWorkersModels)
				assert.Equal(t, 120, config.RequestTimeoutSeconds)
			},
		},
		{
			name: "rate limits decoded",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question}} {{.ResponseA}} {{.ResponseB}}"
results_db: "out.db"
rate_limits:
  anthropic:
    requests_per_second: 2.5
    burst: 4
`,
			wantErr: false,
			verify: func(t *testing.T, config *TournamentConfig) {
				require.Contains(t, config.RateLimits, "anthropic")
				assert.Equal(t, 2.5, config.RateLimits["anthropic"].RequestsPerSecond)
				assert.Equal(t, 4, config.RateLimits["anthropic"].Burst)
			},
		},
		{
			name: "unknown field rejected",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
bogus_field: true
`,
			wantErr: true,
			errMsg:  "bogus_field",
		},
		{
			name: "missing evaluator model",
			yaml: `
participant_models: ["a/one", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
`,
			wantErr: true,
			errMsg:  "EvaluatorModel",
		},
		{
			name: "single participant",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
`,
			wantErr: true,
			errMsg:  "ParticipantModels",
		},
		{
			name: "duplicate participants",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "a/one"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
`,
			wantErr: true,
			errMsg:  "ParticipantModels",
		},
		{
			name: "participant with empty provider segment",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["/orphan-model", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
`,
			wantErr: true,
			errMsg:  "modelspec",
		},
		{
			name: "evaluator with trailing slash",
			yaml: `
evaluator_model: "anthropic/"
participant_models: ["a/one", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
`,
			wantErr: true,
			errMsg:  "modelspec",
		},
		{
			name: "bare provider spec accepted",
			yaml: `
evaluator_model: "anthropic"
participant_models: ["openai", "google"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
`,
			wantErr: false,
			verify: func(t *testing.T, config *TournamentConfig) {
				assert.Equal(t, "anthropic", config.EvaluatorModel)
			},
		},
		{
			name: "no questions",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "b/two"]
questions: []
eval_prompt: "{{.Question}}"
results_db: "out.db"
`,
			wantErr: true,
			errMsg:  "Questions",
		},
		{
			name: "missing results db",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
`,
			wantErr: true,
			errMsg:  "ResultsDB",
		},
		{
			name: "malformed eval prompt template",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question"
results_db: "out.db"
`,
			wantErr: true,
			errMsg:  "eval_prompt template",
		},
		{
			name: "rate limit without rate",
			yaml: `
evaluator_model: "anthropic/claude-sonnet"
participant_models: ["a/one", "b/two"]
questions: ["Q"]
eval_prompt: "{{.Question}}"
results_db: "out.db"
rate_limits:
  openai:
    burst: 3
`,
			wantErr: true,
			errMsg:  "RequestsPerSecond",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := parseConfig([]byte(tt.yaml))

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			require.NoError(t, err)
			if tt.verify != nil {
				tt.verify(t, config)
			}
		})
	}
}

// TestTournamentConfig_QuestionList verifies that question IDs are the
// one-based positions in the configured list. Stores index progress by
// these IDs, so reordering questions would corrupt a resumed run.
func TestTournamentConfig_QuestionList(t *testing.T) {
	config := &TournamentConfig{Questions: []string{"first", "second", "third"}}

	questions := config.QuestionList()
	require.Len(t, questions, 3)
	assert.Equal(t, domain.Question{ID: 1, Text: "first"}, questions[0])
	assert.Equal(t, domain.Question{ID: 2, Text: "second"}, questions[1])
	assert.Equal(t, domain.Question{ID: 3, Text: "third"}, questions[2])
}

func TestTournamentConfig_SetDefaults(t *testing.T) {
	tests := []struct {
		name          string
		config        TournamentConfig
		wantQuestions int
		wantModels    int
	}{
		{
			name:          "zero values take defaults",
			config:        TournamentConfig{},
			wantQuestions: DefaultMaxWorkersQuestions,
			wantModels:    DefaultMaxWorkersModels,
		},
		{
			name:          "negative values take defaults",
			config:        TournamentConfig{MaxWorkersQuestions: -1, MaxWorkersModels: -3},
			wantQuestions: DefaultMaxWorkersQuestions,
			wantModels:    DefaultMaxWorkersModels,
		},
		{
			name:          "explicit values preserved",
			config:        TournamentConfig{MaxWorkersQuestions: 1, MaxWorkersModels: 7},
			wantQuestions: 1,
			wantModels:    7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.SetDefaults()
			assert.Equal(t, tt.wantQuestions, tt.config.MaxWorkersQuestions)
			assert.Equal(t, tt.wantModels, tt.config.MaxWorkersModels)
		})
	}
}
