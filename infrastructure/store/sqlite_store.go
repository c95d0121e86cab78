// Package store persists tournament results and progress markers in a
// SQLite database.
//
// The schema mirrors the four tournament tables: collected responses,
// adjudicated matches, and the two progress tables that make reruns
// idempotent. The store performs no locking of its own; callers serialize
// check-then-write sequences per the ports.TournamentStore contract.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// responseRow mirrors the model_responses table.
// A NULL response records an adapter failure for the pair.
type responseRow struct {
	ModelName  string  `gorm:"column:model_name;primaryKey"`
	QuestionID int     `gorm:"column:question_id;primaryKey"`
	Response   *string `gorm:"column:response"`
}

func (responseRow) TableName() string { return "model_responses" }

// matchRow mirrors the evaluation_results table.
// Relation holds the JSON-encoded ["winner","loser"] pair, or the literal
// null for matches whose verdict could not be parsed.
type matchRow struct {
	ModelA            string `gorm:"column:model_a;primaryKey"`
	ModelB            string `gorm:"column:model_b;primaryKey"`
	QuestionID        int    `gorm:"column:question_id;primaryKey"`
	EvaluatorResponse string `gorm:"column:evaluator_response"`
	Relation          string `gorm:"column:punitiveness_relation"`
}

func (matchRow) TableName() string { return "evaluation_results" }

// responseProgressRow mirrors the response_progress table.
type responseProgressRow struct {
	QuestionID int    `gorm:"column:question_id;primaryKey"`
	ModelName  string `gorm:"column:model_name;primaryKey"`
	Processed  bool   `gorm:"column:processed"`
}

func (responseProgressRow) TableName() string { return "response_progress" }

// matchProgressRow mirrors the evaluation_progress table.
// Every adjudicated pair gets two rows, one per positional order.
type matchProgressRow struct {
	QuestionID int    `gorm:"column:question_id;primaryKey"`
	ModelA     string `gorm:"column:model_a;primaryKey"`
	ModelB     string `gorm:"column:model_b;primaryKey"`
	Processed  bool   `gorm:"column:processed"`
}

func (matchProgressRow) TableName() string { return "evaluation_progress" }

// SQLiteStore implements ports.TournamentStore on a SQLite file.
// The zero value is not usable; construct with Open.
type SQLiteStore struct {
	db *gorm.DB
}

// Compile-time verification that SQLiteStore satisfies the store port.
var _ ports.TournamentStore = (*SQLiteStore)(nil)

// Open opens or creates the database at path and ensures the tournament
// schema exists. The same file can be reopened across runs to resume an
// interrupted tournament.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, ports.NewStoreError("", "open", err)
	}

	if err := db.AutoMigrate(
		&responseRow{},
		&matchRow{},
		&responseProgressRow{},
		&matchProgressRow{},
	); err != nil {
		return nil, ports.NewStoreError("", "migrate", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveResponse upserts a participant's response to a question.
func (s *SQLiteStore) SaveResponse(ctx context.Context, response domain.ModelResponse) error {
	row := responseRow{
		ModelName:  response.ModelName,
		QuestionID: response.QuestionID,
		Response:   response.Response,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return ports.NewStoreError("model_responses", "save_response", err)
	}
	return nil
}

// GetResponse retrieves a stored response by model and question.
func (s *SQLiteStore) GetResponse(ctx context.Context, modelName string, questionID int) (domain.ModelResponse, bool, error) {
	var row responseRow
	err := s.db.WithContext(ctx).
		Where("model_name = ? AND question_id = ?", modelName, questionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ModelResponse{}, false, nil
	}
	if err != nil {
		return domain.ModelResponse{}, false, ports.NewStoreError("model_responses", "get_response", err)
	}
	return domain.ModelResponse{
		ModelName:  row.ModelName,
		QuestionID: row.QuestionID,
		Response:   row.Response,
	}, true, nil
}

// ResponseDone reports whether collection for the question-model pair
// already completed.
func (s *SQLiteStore) ResponseDone(ctx context.Context, questionID int, modelName string) (bool, error) {
	var row responseProgressRow
	err := s.db.WithContext(ctx).
		Where("question_id = ? AND model_name = ?", questionID, modelName).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, ports.NewStoreError("response_progress", "response_done", err)
	}
	return row.Processed, nil
}

// MarkResponseDone records that collection for the question-model pair
// completed.
func (s *SQLiteStore) MarkResponseDone(ctx context.Context, questionID int, modelName string) error {
	row := responseProgressRow{
		QuestionID: questionID,
		ModelName:  modelName,
		Processed:  true,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return ports.NewStoreError("response_progress", "mark_response_done", err)
	}
	return nil
}

// newMatchRow encodes a match record for the evaluation_results table.
// A nil verdict serializes to the JSON literal null.
func newMatchRow(record domain.MatchRecord) (matchRow, error) {
	relation, err := json.Marshal(record.Verdict)
	if err != nil {
		return matchRow{}, ports.NewStoreError("evaluation_results", "encode_relation", err)
	}
	return matchRow{
		ModelA:            record.ModelA,
		ModelB:            record.ModelB,
		QuestionID:        record.QuestionID,
		EvaluatorResponse: record.EvaluatorResponse,
		Relation:          string(relation),
	}, nil
}

// markerPair builds the two progress rows that mark a pair adjudicated,
// one per positional order.
func markerPair(questionID int, modelA, modelB string) []matchProgressRow {
	return []matchProgressRow{
		{QuestionID: questionID, ModelA: modelA, ModelB: modelB, Processed: true},
		{QuestionID: questionID, ModelA: modelB, ModelB: modelA, Processed: true},
	}
}

// SaveMatch appends an adjudicated match record. It does not touch
// progress markers; settlement during a run goes through SettleMatch.
func (s *SQLiteStore) SaveMatch(ctx context.Context, record domain.MatchRecord) error {
	row, err := newMatchRow(record)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ports.NewStoreError("evaluation_results", "save_match", err)
	}
	return nil
}

// MatchDone reports whether the pair was already adjudicated for the
// question, in either positional order.
func (s *SQLiteStore) MatchDone(ctx context.Context, questionID int, modelA, modelB string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&matchProgressRow{}).
		Where("question_id = ? AND processed = ?", questionID, true).
		Where("(model_a = ? AND model_b = ?) OR (model_a = ? AND model_b = ?)",
			modelA, modelB, modelB, modelA).
		Count(&count).Error
	if err != nil {
		return false, ports.NewStoreError("evaluation_progress", "match_done", err)
	}
	return count > 0, nil
}

// MarkMatchDone records that the pair was adjudicated for the question.
// Both positional orders are written in a single batch so the marker pair
// is atomic.
func (s *SQLiteStore) MarkMatchDone(ctx context.Context, questionID int, modelA, modelB string) error {
	rows := markerPair(questionID, modelA, modelB)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return ports.NewStoreError("evaluation_progress", "mark_match_done", err)
	}
	return nil
}

// SettleMatch persists an adjudicated match and both marker orders in
// one transaction. An interruption rolls the whole write back, so a
// stored record always has its markers. A record left unmarked by a run
// that died mid-settlement is replaced, whichever positional order it
// was stored under, keeping one record per unordered pair.
func (s *SQLiteStore) SettleMatch(ctx context.Context, record domain.MatchRecord) error {
	row, err := newMatchRow(record)
	if err != nil {
		return err
	}
	markers := markerPair(record.QuestionID, record.ModelA, record.ModelB)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("question_id = ?", record.QuestionID).
			Where("(model_a = ? AND model_b = ?) OR (model_a = ? AND model_b = ?)",
				record.ModelA, record.ModelB, record.ModelB, record.ModelA).
			Delete(&matchRow{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&markers).Error
	})
	if err != nil {
		return ports.NewStoreError("evaluation_results", "settle_match", err)
	}
	return nil
}

// ListMatches returns every stored match record in insertion order.
// SQLite's implicit rowid increases with insertion, which keeps the Elo
// fold reproducible for a given store file.
func (s *SQLiteStore) ListMatches(ctx context.Context) ([]domain.MatchRecord, error) {
	var rows []matchRow
	if err := s.db.WithContext(ctx).Order("rowid").Find(&rows).Error; err != nil {
		return nil, ports.NewStoreError("evaluation_results", "list_matches", err)
	}

	records := make([]domain.MatchRecord, 0, len(rows))
	for _, row := range rows {
		var verdict *domain.Verdict
		if err := json.Unmarshal([]byte(row.Relation), &verdict); err != nil {
			return nil, ports.NewStoreError("evaluation_results", "decode_relation",
				fmt.Errorf("question %d, pair (%s, %s): %w", row.QuestionID, row.ModelA, row.ModelB, err))
		}
		records = append(records, domain.MatchRecord{
			ModelA:            row.ModelA,
			ModelB:            row.ModelB,
			QuestionID:        row.QuestionID,
			EvaluatorResponse: row.EvaluatorResponse,
			Verdict:           verdict,
		})
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return ports.NewStoreError("", "close", err)
	}
	return sqlDB.Close()
}
