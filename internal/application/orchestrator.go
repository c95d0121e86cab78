// Package application orchestrates benchmarking tournaments. A tournament
// collects each participant model's response to every question, has an
// evaluator model adjudicate every pairwise comparison, and persists both
// results and progress markers so an interrupted run resumes where it
// stopped.
package application

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"text/template"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// Tournament runs one tournament configuration against a store and a
// client source. Questions are processed concurrently, collections within
// a question are processed concurrently, and adjudication within a
// question is sequential.
type Tournament struct {
	config  *TournamentConfig
	store   ports.TournamentStore
	clients ports.ClientSource
	metrics ports.MetricsCollector

	promptTmpl *template.Template

	// coin decides, per pair, whether the enumeration order is swapped
	// before the pair is presented as positions A and B.
	coin func() bool

	// mu serializes every store access. Check-then-write sequences such
	// as MatchDone followed by SettleMatch must not interleave across
	// workers. Provider calls never hold it.
	mu sync.Mutex
}

// TournamentOption configures optional Tournament collaborators.
type TournamentOption func(*Tournament)

// WithMetrics attaches a metrics collector. Without it the tournament
// runs unmetered.
func WithMetrics(collector ports.MetricsCollector) TournamentOption {
	return func(t *Tournament) { t.metrics = collector }
}

// WithPositionCoin replaces the fair coin that assigns pair positions.
// Tests substitute a deterministic coin.
func WithPositionCoin(coin func() bool) TournamentOption {
	return func(t *Tournament) { t.coin = coin }
}

// NewTournament builds a Tournament from a validated configuration.
// The eval prompt template is compiled once here and reused for every
// adjudication.
func NewTournament(
	config *TournamentConfig,
	store ports.TournamentStore,
	clients ports.ClientSource,
	opts ...TournamentOption,
) (*Tournament, error) {
	config.SetDefaults()

	tmpl, err := template.New("evalPrompt").Parse(config.EvalPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse eval prompt template: %w", err)
	}

	t := &Tournament{
		config:     config,
		store:      store,
		clients:    clients,
		promptTmpl: tmpl,
		coin:       func() bool { return rand.IntN(2) == 0 },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run executes the tournament across all configured questions and returns
// one report per question, in question order. Work recorded by a previous
// run against the same store is skipped, so Run is safe to call again
// after an interruption.
func (t *Tournament) Run(ctx context.Context) ([]domain.QuestionReport, error) {
	start := time.Now()
	log := clog.FromContext(ctx)

	questions := t.config.QuestionList()
	t.recordGauge("tournament_questions", float64(len(questions)))
	t.recordGauge("tournament_participants", float64(len(t.config.ParticipantModels)))

	reports := make([]domain.QuestionReport, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.config.MaxWorkersQuestions)
	for i, question := range questions {
		g.Go(func() error {
			report, err := t.processQuestion(gctx, question)
			if err != nil {
				return fmt.Errorf("question %d: %w", question.ID, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.recordLatency("tournament_run", time.Since(start))
	log.With("questions", len(questions)).
		With("elapsed", time.Since(start)).
		Info("Tournament run complete")
	return reports, nil
}

// processQuestion collects responses from every participant that has no
// completion marker yet, then adjudicates all pairs for the question.
// Participants skipped via their marker do not reappear in the report;
// their responses still feed adjudication through the store.
func (t *Tournament) processQuestion(ctx context.Context, question domain.Question) (domain.QuestionReport, error) {
	log := clog.FromContext(ctx).With("question_id", question.ID)

	report := domain.QuestionReport{
		QuestionID: question.ID,
		Question:   question.Text,
		Responses:  make(map[string]*string, len(t.config.ParticipantModels)),
	}

	var reportMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.config.MaxWorkersModels)
	for _, model := range t.config.ParticipantModels {
		g.Go(func() error {
			done, err := t.responseDone(gctx, question.ID, model)
			if err != nil {
				return fmt.Errorf("response progress for %s: %w", model, err)
			}
			if done {
				log.With("model", model).Debug("Response already collected, skipping")
				return nil
			}

			response, err := t.collectResponse(gctx, model, question)
			if err != nil {
				return fmt.Errorf("collect response from %s: %w", model, err)
			}
			if err := t.markResponseDone(gctx, question.ID, model); err != nil {
				return fmt.Errorf("mark response done for %s: %w", model, err)
			}

			reportMu.Lock()
			report.Responses[model] = response
			reportMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.QuestionReport{}, err
	}

	matches, err := t.adjudicateQuestion(ctx, question)
	if err != nil {
		return domain.QuestionReport{}, err
	}
	report.Matches = matches

	t.recordCounter("questions_processed_total", 1, map[string]string{"status": "success"})
	log.Info("Question processed")
	return report, nil
}

// Store access helpers. Every store call in the tournament goes through
// one of these, so the mutex is the single concurrency boundary in front
// of the store.

func (t *Tournament) responseDone(ctx context.Context, questionID int, model string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.ResponseDone(ctx, questionID, model)
}

func (t *Tournament) markResponseDone(ctx context.Context, questionID int, model string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.MarkResponseDone(ctx, questionID, model)
}

func (t *Tournament) saveResponse(ctx context.Context, response domain.ModelResponse) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.SaveResponse(ctx, response)
}

func (t *Tournament) getResponse(ctx context.Context, model string, questionID int) (domain.ModelResponse, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.GetResponse(ctx, model, questionID)
}

func (t *Tournament) matchDone(ctx context.Context, questionID int, modelA, modelB string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.MatchDone(ctx, questionID, modelA, modelB)
}

// settleMatch persists an adjudicated match and its completion markers
// as one locked, atomic store write.
func (t *Tournament) settleMatch(ctx context.Context, record domain.MatchRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.SettleMatch(ctx, record)
}

// Metric helpers tolerate a nil collector.

func (t *Tournament) recordCounter(metric string, value float64, labels map[string]string) {
	if t.metrics != nil {
		t.metrics.RecordCounter(metric, value, labels)
	}
}

func (t *Tournament) recordGauge(metric string, value float64) {
	if t.metrics != nil {
		t.metrics.RecordGauge(metric, value, nil)
	}
}

func (t *Tournament) recordLatency(operation string, elapsed time.Duration) {
	if t.metrics != nil {
		t.metrics.RecordLatency(operation, elapsed, nil)
	}
}
