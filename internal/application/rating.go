package application

import (
	"context"
	"fmt"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// ComputeRatings folds every match recorded in the store into Elo ratings.
// It reads the full match history in insertion order, so ratings are
// reproducible for a given store. It is a free function because rating
// runs against a finished store, without a live tournament.
func ComputeRatings(ctx context.Context, store ports.TournamentStore, config domain.EloConfig) ([]domain.ModelRating, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating config: %w", err)
	}
	records, err := store.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return domain.ComputeEloRatings(records, config), nil
}
