package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-arena/infrastructure/llm"
	"github.com/ahrav/go-arena/infrastructure/metrics"
	"github.com/ahrav/go-arena/infrastructure/store"
	"github.com/ahrav/go-arena/internal/application"
	"github.com/ahrav/go-arena/internal/ports"
)

// tracerName identifies this binary's spans.
const tracerName = "github.com/ahrav/go-arena"

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a benchmarking tournament",
		Long: `Run a benchmarking tournament from a configuration file.

The configuration names the evaluator, the participants, the questions,
and the results database. Rerunning with the same database resumes an
interrupted tournament: collected responses and settled matches are
skipped, and only unfinished work reaches the providers.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	config, err := application.LoadConfig(args[0])
	if err != nil {
		return err
	}

	s, err := store.Open(config.ResultsDB)
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}
	defer func() { _ = s.Close() }()

	collector := metrics.NewCollector(nil)
	if config.MetricsAddr != "" {
		srv, err := metrics.StartServer(ctx, config.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
		clog.InfoContextf(ctx, "Serving metrics on %s", srv.Addr)
	}

	clients, err := newClientSource(config, collector)
	if err != nil {
		return err
	}

	tournament, err := application.NewTournament(config, s, clients, application.WithMetrics(collector))
	if err != nil {
		return err
	}

	reports, err := tournament.Run(ctx)
	if err != nil {
		return err
	}

	matches := 0
	for _, report := range reports {
		matches += len(report.Matches)
	}
	fmt.Printf("Tournament complete: %d questions, %d matches adjudicated this run.\n", len(reports), matches)
	fmt.Printf("Results stored in %s\n", config.ResultsDB)
	return nil
}

// newClientSource builds the provider registry with the standard
// middleware chain. Retries sit outermost so each attempt passes back
// through the provider's rate limiter; metrics and tracing sit closest to
// the provider and observe individual attempts.
func newClientSource(config *application.TournamentConfig, collector ports.MetricsCollector) (ports.ClientSource, error) {
	providers := maps.Clone(llm.DefaultProviders)
	for name, providerConfig := range providers {
		middleware := []llm.Middleware{
			llm.RetryMiddleware(llm.DefaultRetryConfig()),
		}
		if limit, ok := config.RateLimits[name]; ok {
			burst := limit.Burst
			if burst <= 0 {
				burst = 1
			}
			middleware = append(middleware, llm.RateLimitMiddleware(limit.RequestsPerSecond, burst))
		}
		middleware = append(middleware,
			llm.MetricsMiddleware(collector, name),
			llm.TracingMiddleware(tracerName),
		)

		providerConfig.Middleware = middleware
		providers[name] = providerConfig
	}

	registry, err := llm.NewRegistry(llm.RegistryConfig{
		Providers:      providers,
		DefaultTimeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	return registry, nil
}
