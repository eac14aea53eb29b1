package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/examprep/internal/model"
)

const resultColumns = `id, user_id, source_file, score_percent, duration_seconds, errors_by_topic, answers_detail, submitted_at`

// InsertResult stores a scored exam and returns it with its id and
// submission time.
func (s *Store) InsertResult(ctx context.Context, rec model.ResultRecord) (model.StoredResult, error) {
	topics, err := json.Marshal(rec.ErrorsByTopic)
	if err != nil {
		return model.StoredResult{}, fmt.Errorf("encode errors_by_topic: %w", err)
	}
	details, err := json.Marshal(rec.AnswersDetail)
	if err != nil {
		return model.StoredResult{}, fmt.Errorf("encode answers_detail: %w", err)
	}
	if rec.SourceFile == "" {
		rec.SourceFile = model.RandomSource
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (user_id, source_file, score_percent, duration_seconds, errors_by_topic, answers_detail, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.SourceFile, rec.ScorePercent, rec.DurationSeconds, string(topics), string(details), now,
	)
	if err != nil {
		return model.StoredResult{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.StoredResult{}, err
	}
	return model.StoredResult{ID: id, SubmittedAt: now, ResultRecord: rec}, nil
}

// ResultsByUser returns the user's results, newest first.
func (s *Store) ResultsByUser(ctx context.Context, userID string) ([]model.StoredResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE user_id = ? ORDER BY submitted_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetResult returns one of the user's results, or nil if there is none.
func (s *Store) GetResult(ctx context.Context, userID string, id int64) (*model.StoredResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE user_id = ? AND id = ?`, userID, id,
	)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (model.StoredResult, error) {
	var r model.StoredResult
	var topics, details string
	err := row.Scan(&r.ID, &r.UserID, &r.SourceFile, &r.ScorePercent, &r.DurationSeconds, &topics, &details, &r.SubmittedAt)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(topics), &r.ErrorsByTopic); err != nil {
		return r, fmt.Errorf("decode errors_by_topic of result %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(details), &r.AnswersDetail); err != nil {
		return r, fmt.Errorf("decode answers_detail of result %d: %w", r.ID, err)
	}
	return r, nil
}
