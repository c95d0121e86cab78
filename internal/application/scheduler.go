package application

import (
	"bytes"
	"context"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/go-arena/internal/domain"
)

// adjudicateQuestion walks every unordered participant pair for one
// question in enumeration order and returns the matches adjudicated in
// this run. Pairs are settled sequentially so the evaluator sees at most
// one in-flight request per question.
func (t *Tournament) adjudicateQuestion(ctx context.Context, question domain.Question) ([]domain.MatchRecord, error) {
	models := t.config.ParticipantModels

	var records []domain.MatchRecord
	for i := range models {
		for j := i + 1; j < len(models); j++ {
			record, ok, err := t.adjudicatePair(ctx, question, models[i], models[j])
			if err != nil {
				return nil, err
			}
			if ok {
				records = append(records, record)
			}
		}
	}
	return records, nil
}

// adjudicatePair settles one pair: assign positions by coin flip, skip
// pairs that lack two responses or are already settled, ask the
// evaluator, and persist the record with its completion markers. An
// evaluator failure leaves no marker, so the pair is retried on the next
// run. The returned bool reports whether a match was settled here.
func (t *Tournament) adjudicatePair(
	ctx context.Context,
	question domain.Question,
	first, second string,
) (domain.MatchRecord, bool, error) {
	// The flip happens before any skip check so position assignment is
	// independent of store state.
	modelA, modelB := first, second
	if t.coin() {
		modelA, modelB = modelB, modelA
	}

	log := clog.FromContext(ctx).
		With("question_id", question.ID).
		With("model_a", modelA).
		With("model_b", modelB)

	responseA, okA, err := t.getResponse(ctx, modelA, question.ID)
	if err != nil {
		return domain.MatchRecord{}, false, err
	}
	responseB, okB, err := t.getResponse(ctx, modelB, question.ID)
	if err != nil {
		return domain.MatchRecord{}, false, err
	}
	if !okA || !responseA.Available() || !okB || !responseB.Available() {
		log.Debug("Pair lacks two responses, skipping")
		return domain.MatchRecord{}, false, nil
	}

	done, err := t.matchDone(ctx, question.ID, modelA, modelB)
	if err != nil {
		return domain.MatchRecord{}, false, err
	}
	if done {
		log.Debug("Pair already adjudicated, skipping")
		return domain.MatchRecord{}, false, nil
	}

	prompt, err := t.renderEvalPrompt(question.Text, *responseA.Response, *responseB.Response)
	if err != nil {
		log.With("error", err.Error()).Error("Eval prompt rendering failed, leaving pair unsettled")
		return domain.MatchRecord{}, false, nil
	}

	raw, ok := t.evaluate(ctx, prompt)
	if !ok {
		return domain.MatchRecord{}, false, nil
	}

	record := domain.MatchRecord{
		ModelA:            modelA,
		ModelB:            modelB,
		QuestionID:        question.ID,
		EvaluatorResponse: raw,
		Verdict:           domain.ParseVerdict(raw, modelA, modelB),
	}
	if err := t.settleMatch(ctx, record); err != nil {
		return domain.MatchRecord{}, false, err
	}

	t.recordCounter("matches_adjudicated_total", 1, map[string]string{"status": verdictStatus(record.Verdict)})
	log.Info("Match adjudicated")
	return record, true, nil
}

// evaluate sends an adjudication prompt to the evaluator model. Failures
// are logged and reported as not-ok rather than returned as errors, since
// an unsettled pair is recoverable state.
func (t *Tournament) evaluate(ctx context.Context, prompt string) (string, bool) {
	log := clog.FromContext(ctx).With("model", t.config.EvaluatorModel)

	client, err := t.clients.GetClient(t.config.EvaluatorModel)
	if err != nil {
		log.With("error", err.Error()).Error("No client for evaluator")
		t.recordCounter("adjudication_failures_total", 1, map[string]string{"status": "resolution"})
		return "", false
	}

	if tokens, err := client.EstimateTokens(prompt); err == nil {
		log.With("prompt_tokens", tokens).Debug("Sending adjudication prompt")
	}

	raw, err := client.Complete(ctx, prompt, map[string]any{"temperature": 0.0})
	if err != nil {
		log.With("error", err.Error()).Warn("Evaluator call failed, leaving pair unsettled")
		t.recordCounter("adjudication_failures_total", 1, map[string]string{"status": "provider"})
		return "", false
	}
	return raw, true
}

// renderEvalPrompt executes the compiled eval prompt template with the
// question and the two positioned responses.
func (t *Tournament) renderEvalPrompt(question, responseA, responseB string) (string, error) {
	data := struct {
		Question  string
		ResponseA string
		ResponseB string
	}{
		Question:  question,
		ResponseA: responseA,
		ResponseB: responseB,
	}

	var buf bytes.Buffer
	if err := t.promptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func verdictStatus(verdict *domain.Verdict) string {
	if verdict == nil {
		return "null"
	}
	return "decided"
}
