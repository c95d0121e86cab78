package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-arena/internal/domain"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	// The implementation should handle rate limiting, retries, and timeouts.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "model": string (specific model version)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens calculates the approximate token count for a given text.
	// This is useful for cost estimation and staying within model limits.
	// The estimation method may vary by provider.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier being used by this client.
	// This is useful for logging and debugging purposes.
	GetModel() string
}

// ClientSource resolves a model spec of the form "provider/model" to a
// ready client. Resolution failures mean the spec names a provider the
// process cannot serve; collection treats them like any other adapter
// failure rather than aborting the tournament.
type ClientSource interface {
	GetClient(spec string) (LLMClient, error)
}

// TournamentStore persists every durable artifact of a tournament run:
// collected responses, adjudicated matches, and the progress markers that
// make reruns idempotent.
//
// Implementations do not lock: callers serialize each check-then-write
// sequence under their own mutex and keep provider calls outside it.
// Individual methods only need to be safe for the resulting one-writer
// discipline.
type TournamentStore interface {
	// SaveResponse upserts a participant's response to a question.
	// A nil Response persists as NULL, recording an adapter failure.
	SaveResponse(ctx context.Context, response domain.ModelResponse) error

	// GetResponse retrieves a stored response by model and question.
	// Returns the response and true if a row exists, or a zero value and
	// false if not. A stored NULL response still reports true; callers
	// check Available before adjudicating with it.
	GetResponse(ctx context.Context, modelName string, questionID int) (domain.ModelResponse, bool, error)

	// ResponseDone reports whether collection for the question-model pair
	// already completed in this or an earlier run.
	ResponseDone(ctx context.Context, questionID int, modelName string) (bool, error)

	// MarkResponseDone records that collection for the question-model pair
	// completed. Marking is idempotent.
	MarkResponseDone(ctx context.Context, questionID int, modelName string) error

	// SaveMatch appends an adjudicated match record. It does not touch
	// progress markers; settlement during a run goes through SettleMatch.
	SaveMatch(ctx context.Context, record domain.MatchRecord) error

	// MatchDone reports whether the pair was already adjudicated for the
	// question, in either positional order.
	MatchDone(ctx context.Context, questionID int, modelA, modelB string) (bool, error)

	// MarkMatchDone records that the pair was adjudicated for the
	// question. Both positional orders are marked, so a rerun that flips
	// the coin still sees the pair as processed. Marking is idempotent.
	MarkMatchDone(ctx context.Context, questionID int, modelA, modelB string) error

	// SettleMatch persists an adjudicated match record together with
	// both positional completion markers as one atomic write: all three
	// rows land or none do. An unmarked record already stored for the
	// same unordered pair, under either positional order, is replaced
	// rather than duplicated.
	SettleMatch(ctx context.Context, record domain.MatchRecord) error

	// ListMatches returns every stored match record in insertion order.
	// The ordering is part of the contract: the Elo reduction folds
	// sequentially and must see records the way they were written.
	ListMatches(ctx context.Context) ([]domain.MatchRecord, error)

	// Close releases the underlying database handle.
	Close() error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like completed matches, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like in-flight questions.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like response latencies.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
