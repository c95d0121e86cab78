package application

import (
	"context"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/go-arena/internal/domain"
)

// collectResponse obtains one participant's response to one question and
// persists it. A response already in the store is reused without calling
// the provider. A provider failure is recorded as a null response; the
// question keeps its remaining participants and the pairs involving this
// model are skipped downstream.
func (t *Tournament) collectResponse(ctx context.Context, model string, question domain.Question) (*string, error) {
	log := clog.FromContext(ctx).With("model", model).With("question_id", question.ID)

	cached, ok, err := t.getResponse(ctx, model, question.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Debug("Using persisted response")
		return cached.Response, nil
	}

	response := t.completePrompt(ctx, model, question.Text)
	if response == nil {
		log.Warn("Collection failed, recording null response")
	}

	record := domain.ModelResponse{
		ModelName:  model,
		QuestionID: question.ID,
		Response:   response,
	}
	if err := t.saveResponse(ctx, record); err != nil {
		return nil, err
	}
	return response, nil
}

// completePrompt resolves a client for the model and requests a
// completion. Both resolution and provider failures collapse to nil; the
// collector treats them identically and neither aborts the tournament.
func (t *Tournament) completePrompt(ctx context.Context, model, prompt string) *string {
	log := clog.FromContext(ctx).With("model", model)

	client, err := t.clients.GetClient(model)
	if err != nil {
		log.With("error", err.Error()).Warn("No client for model")
		t.recordCounter("collection_failures_total", 1, map[string]string{"status": "resolution"})
		return nil
	}

	text, err := client.Complete(ctx, prompt, map[string]any{"temperature": 0.0})
	if err != nil {
		log.With("error", err.Error()).Warn("Model call failed")
		t.recordCounter("collection_failures_total", 1, map[string]string{"status": "provider"})
		return nil
	}
	return &text
}
