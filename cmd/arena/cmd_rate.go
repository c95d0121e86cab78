package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-arena/infrastructure/store"
	"github.com/ahrav/go-arena/internal/application"
	"github.com/ahrav/go-arena/internal/domain"
)

var (
	rateKFactor      float64
	rateInitialScore float64
)

func newRateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate <results.db>",
		Short: "Compute Elo ratings from a results database",
		Long: `Compute Elo ratings from the matches in a results database.

Matches are replayed in the order they were adjudicated, so the same
database always produces the same ratings. Models appear in the order
they first entered a match.`,
		Args: cobra.ExactArgs(1),
		RunE: rateCommandE,
	}

	defaults := domain.DefaultEloConfig()
	cmd.Flags().Float64Var(&rateKFactor, "k-factor", defaults.KFactor, "Rating points at stake per match")
	cmd.Flags().Float64Var(&rateInitialScore, "initial-score", defaults.InitialScore, "Starting score for unrated models")

	return cmd
}

func rateCommandE(cmd *cobra.Command, args []string) error {
	// Opening a store creates it when missing, which would rate a typo'd
	// path as an empty tournament. Rating requires an existing database.
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("results database not found: %w", err)
	}

	s, err := store.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}
	defer func() { _ = s.Close() }()

	ratings, err := application.ComputeRatings(cmd.Context(), s, domain.EloConfig{
		KFactor:      rateKFactor,
		InitialScore: rateInitialScore,
	})
	if err != nil {
		return err
	}

	fmt.Println("Elo Scores:")
	for _, rating := range ratings {
		fmt.Printf("%s: %v\n", rating.Model, rating.Score)
	}
	return nil
}
