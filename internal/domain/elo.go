package domain

import (
	"fmt"
	"math"
)

// Standard tournament rating parameters.
const (
	// DefaultKFactor is the maximum rating movement a single match can
	// produce.
	DefaultKFactor = 32.0

	// DefaultInitialScore is the rating assigned to a model on first
	// appearance.
	DefaultInitialScore = 1000.0
)

// EloConfig parameterizes the rating reduction.
type EloConfig struct {
	// KFactor scales how far one match moves the winner and loser.
	KFactor float64

	// InitialScore seeds every model's rating on first appearance.
	InitialScore float64
}

// DefaultEloConfig returns the standard K=32, 1000-start configuration.
func DefaultEloConfig() EloConfig {
	return EloConfig{KFactor: DefaultKFactor, InitialScore: DefaultInitialScore}
}

// Validate checks that the rating parameters are usable.
// A non-positive K factor would freeze or invert rating movement, and a
// negative initial score has no meaning in an Elo table.
func (c EloConfig) Validate() error {
	verr := NewValidationError("EloConfig")
	if c.KFactor <= 0 {
		verr.AddError(fmt.Sprintf("k factor must be positive, got %v", c.KFactor))
	}
	if c.InitialScore < 0 {
		verr.AddError(fmt.Sprintf("initial score must not be negative, got %v", c.InitialScore))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ModelRating pairs a model with its computed rating.
type ModelRating struct {
	// Model is the participant's configured name.
	Model string `json:"model"`

	// Score is the Elo rating after folding every match.
	Score float64 `json:"score"`
}

// ComputeEloRatings folds match records into an Elo table.
// The fold is sequential, so records must arrive in store insertion order
// for reproducible ratings. Both participants of a record enter the table
// at the initial score before the verdict is inspected; models seen only
// in null-verdict matches therefore still appear. The returned slice
// preserves first-appearance order.
func ComputeEloRatings(records []MatchRecord, cfg EloConfig) []ModelRating {
	scores := make(map[string]float64)
	order := make([]string, 0, len(records))

	register := func(model string) {
		if _, ok := scores[model]; !ok {
			scores[model] = cfg.InitialScore
			order = append(order, model)
		}
	}

	for _, rec := range records {
		register(rec.ModelA)
		register(rec.ModelB)
		if rec.Verdict == nil {
			continue
		}
		register(rec.Verdict.Winner)
		register(rec.Verdict.Loser)

		ra := scores[rec.Verdict.Winner]
		rb := scores[rec.Verdict.Loser]
		ea := 1 / (1 + math.Pow(10, (rb-ra)/400))
		eb := 1 / (1 + math.Pow(10, (ra-rb)/400))
		scores[rec.Verdict.Winner] += cfg.KFactor * (1 - ea)
		scores[rec.Verdict.Loser] += cfg.KFactor * (0 - eb)
	}

	ratings := make([]ModelRating, 0, len(order))
	for _, model := range order {
		ratings = append(ratings, ModelRating{Model: model, Score: scores[model]})
	}
	return ratings
}
