package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-arena/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err, "Failed to open test store")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err, "empty path should be rejected")
}

func TestSaveResponse_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	response := domain.ModelResponse{
		ModelName:  "anthropic/claude-instant-1.2",
		QuestionID: 1,
		Response:   strPtr("a three year sentence"),
	}
	require.NoError(t, s.SaveResponse(ctx, response), "Failed to save response")

	got, ok, err := s.GetResponse(ctx, response.ModelName, response.QuestionID)
	require.NoError(t, err, "Failed to get response")
	require.True(t, ok, "saved response should be found")
	require.NotNil(t, got.Response)
	assert.Equal(t, "a three year sentence", *got.Response, "response text mismatch")
}

func TestSaveResponse_UpsertReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := domain.ModelResponse{ModelName: "gpt", QuestionID: 2, Response: strPtr("first")}
	require.NoError(t, s.SaveResponse(ctx, first))

	second := domain.ModelResponse{ModelName: "gpt", QuestionID: 2, Response: strPtr("second")}
	require.NoError(t, s.SaveResponse(ctx, second), "saving the same key twice should not error")

	got, ok, err := s.GetResponse(ctx, "gpt", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", *got.Response, "upsert should keep the latest response")
}

func TestSaveResponse_NullMarksAdapterFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	failed := domain.ModelResponse{ModelName: "gemini", QuestionID: 1, Response: nil}
	require.NoError(t, s.SaveResponse(ctx, failed), "Failed to save null response")

	got, ok, err := s.GetResponse(ctx, "gemini", 1)
	require.NoError(t, err)
	require.True(t, ok, "a null response row still exists")
	assert.False(t, got.Available(), "null response should report unavailable")
}

func TestGetResponse_Missing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetResponse(context.Background(), "nobody", 99)
	require.NoError(t, err, "a missing row is not an error")
	assert.False(t, ok, "missing row should report not found")
}

func TestResponseProgress(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	done, err := s.ResponseDone(ctx, 1, "claude")
	require.NoError(t, err)
	assert.False(t, done, "fresh pair should not be marked")

	require.NoError(t, s.MarkResponseDone(ctx, 1, "claude"))
	require.NoError(t, s.MarkResponseDone(ctx, 1, "claude"), "marking twice should be idempotent")

	done, err = s.ResponseDone(ctx, 1, "claude")
	require.NoError(t, err)
	assert.True(t, done, "marked pair should report done")

	// Markers are scoped to the question.
	done, err = s.ResponseDone(ctx, 2, "claude")
	require.NoError(t, err)
	assert.False(t, done, "marker should not leak across questions")
}

func TestMatchProgress_BothOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkMatchDone(ctx, 1, "claude", "gpt"))

	done, err := s.MatchDone(ctx, 1, "claude", "gpt")
	require.NoError(t, err)
	assert.True(t, done, "marked order should report done")

	done, err = s.MatchDone(ctx, 1, "gpt", "claude")
	require.NoError(t, err)
	assert.True(t, done, "a rerun with the opposite coin flip must also see the pair as done")

	done, err = s.MatchDone(ctx, 2, "claude", "gpt")
	require.NoError(t, err)
	assert.False(t, done, "marker should not leak across questions")
}

func TestSaveMatch_RelationColumnEncoding(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	decided := domain.MatchRecord{
		ModelA:            "claude",
		ModelB:            "gpt",
		QuestionID:        1,
		EvaluatorResponse: "<answer>A</answer>",
		Verdict:           &domain.Verdict{Winner: "claude", Loser: "gpt"},
	}
	undecided := domain.MatchRecord{
		ModelA:            "gemini",
		ModelB:            "mistral",
		QuestionID:        1,
		EvaluatorResponse: "no delimiter",
		Verdict:           nil,
	}
	require.NoError(t, s.SaveMatch(ctx, decided))
	require.NoError(t, s.SaveMatch(ctx, undecided))

	// The relation column holds portable JSON, readable by any consumer
	// of the database file.
	var relations []string
	err := s.db.Raw("SELECT punitiveness_relation FROM evaluation_results ORDER BY rowid").
		Scan(&relations).Error
	require.NoError(t, err, "Failed to read raw relation column")
	require.Len(t, relations, 2)
	assert.JSONEq(t, `["claude","gpt"]`, relations[0], "decided match should store a winner-loser pair")
	assert.Equal(t, "null", relations[1], "undecided match should store JSON null")
}

func TestSettleMatch_RecordAndMarkersLandTogether(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	record := domain.MatchRecord{
		ModelA:            "claude",
		ModelB:            "gpt",
		QuestionID:        1,
		EvaluatorResponse: "<answer>A</answer>",
		Verdict:           &domain.Verdict{Winner: "claude", Loser: "gpt"},
	}
	require.NoError(t, s.SettleMatch(ctx, record), "Failed to settle match")

	matches, err := s.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "claude", matches[0].ModelA)

	done, err := s.MatchDone(ctx, 1, "claude", "gpt")
	require.NoError(t, err)
	assert.True(t, done, "settled pair should be marked")

	done, err = s.MatchDone(ctx, 1, "gpt", "claude")
	require.NoError(t, err)
	assert.True(t, done, "settled pair should be marked in the reversed order too")
}

func TestSettleMatch_ReplacesUnmarkedRecord(t *testing.T) {
	// A run killed between the record write and the marker write leaves a
	// record with no markers. Settling the pair again must succeed and
	// leave exactly one record, whichever positional order the retry
	// draws.
	tests := []struct {
		name   string
		modelA string
		modelB string
	}{
		{name: "same order as the stale record", modelA: "claude", modelB: "gpt"},
		{name: "opposite order", modelA: "gpt", modelB: "claude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			ctx := context.Background()

			stale := domain.MatchRecord{
				ModelA:            "claude",
				ModelB:            "gpt",
				QuestionID:        1,
				EvaluatorResponse: "verdict from the interrupted run",
				Verdict:           &domain.Verdict{Winner: "claude", Loser: "gpt"},
			}
			require.NoError(t, s.SaveMatch(ctx, stale))

			// Same pair on another question, already settled; it must not
			// be touched by resettling question 1.
			require.NoError(t, s.SettleMatch(ctx, domain.MatchRecord{
				ModelA:            "claude",
				ModelB:            "gpt",
				QuestionID:        2,
				EvaluatorResponse: "<answer>B</answer>",
				Verdict:           &domain.Verdict{Winner: "gpt", Loser: "claude"},
			}))

			record := domain.MatchRecord{
				ModelA:            tt.modelA,
				ModelB:            tt.modelB,
				QuestionID:        1,
				EvaluatorResponse: "<answer>A</answer>",
				Verdict:           &domain.Verdict{Winner: tt.modelA, Loser: tt.modelB},
			}
			require.NoError(t, s.SettleMatch(ctx, record), "settling over a stale record should not error")

			matches, err := s.ListMatches(ctx)
			require.NoError(t, err)
			require.Len(t, matches, 2, "the pair should keep a single record per question")

			assert.Equal(t, 2, matches[0].QuestionID, "other question's record should survive")
			assert.Equal(t, 1, matches[1].QuestionID)
			assert.Equal(t, tt.modelA, matches[1].ModelA)
			assert.Equal(t, "<answer>A</answer>", matches[1].EvaluatorResponse, "retry verdict should replace the stale record")

			done, err := s.MatchDone(ctx, 1, "claude", "gpt")
			require.NoError(t, err)
			assert.True(t, done, "resettled pair should be marked")
		})
	}
}

func TestListMatches_InsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []domain.MatchRecord{
		{ModelA: "b", ModelB: "a", QuestionID: 1, EvaluatorResponse: "<answer>A</answer>", Verdict: &domain.Verdict{Winner: "b", Loser: "a"}},
		{ModelA: "a", ModelB: "c", QuestionID: 1, EvaluatorResponse: "none"},
		{ModelA: "c", ModelB: "b", QuestionID: 2, EvaluatorResponse: "<answer>B</answer>", Verdict: &domain.Verdict{Winner: "b", Loser: "c"}},
	}
	for _, rec := range records {
		require.NoError(t, s.SaveMatch(ctx, rec))
	}

	got, err := s.ListMatches(ctx)
	require.NoError(t, err, "Failed to list matches")
	require.Len(t, got, 3)

	for i, rec := range records {
		assert.Equal(t, rec.ModelA, got[i].ModelA, "record %d out of insertion order", i)
		assert.Equal(t, rec.ModelB, got[i].ModelB, "record %d out of insertion order", i)
	}
	require.NotNil(t, got[0].Verdict)
	assert.Equal(t, "b", got[0].Verdict.Winner, "decoded verdict winner mismatch")
	assert.Nil(t, got[1].Verdict, "null relation should decode to nil verdict")
}

func TestReopen_PreservesState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveResponse(ctx, domain.ModelResponse{ModelName: "claude", QuestionID: 1, Response: strPtr("kept")}))
	require.NoError(t, s.MarkResponseDone(ctx, 1, "claude"))
	require.NoError(t, s.SaveMatch(ctx, domain.MatchRecord{
		ModelA: "claude", ModelB: "gpt", QuestionID: 1,
		EvaluatorResponse: "<answer>A</answer>",
		Verdict:           &domain.Verdict{Winner: "claude", Loser: "gpt"},
	}))
	require.NoError(t, s.Close())

	// A second open against the same file sees everything the first
	// run persisted.
	reopened, err := Open(path)
	require.NoError(t, err, "Failed to reopen store")
	defer reopened.Close()

	_, ok, err := reopened.GetResponse(ctx, "claude", 1)
	require.NoError(t, err)
	assert.True(t, ok, "response should survive reopen")

	done, err := reopened.ResponseDone(ctx, 1, "claude")
	require.NoError(t, err)
	assert.True(t, done, "progress marker should survive reopen")

	matches, err := reopened.ListMatches(ctx)
	require.NoError(t, err)
	assert.Len(t, matches, 1, "match records should survive reopen")
}
