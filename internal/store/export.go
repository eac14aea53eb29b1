package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pavelanni/examprep/internal/model"
)

// ExportHistory builds an export-ready history for one user. Topics follow
// table order; topics without questions are left out.
func (s *Store) ExportHistory(ctx context.Context, userID int64, table model.TopicTable, passThreshold int) (model.HistoryExport, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return model.HistoryExport{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil {
		return model.HistoryExport{}, fmt.Errorf("user %d not found", userID)
	}

	id := strconv.FormatInt(userID, 10)
	stored, err := s.ResultsByUser(ctx, id)
	if err != nil {
		return model.HistoryExport{}, fmt.Errorf("list results: %w", err)
	}

	export := model.HistoryExport{
		UserID:     id,
		Email:      user.Email,
		ExportedAt: time.Now(),
		Results:    make([]model.HistoryResult, 0, len(stored)),
	}
	for _, r := range stored {
		hr := model.HistoryResult{
			ID:              r.ID,
			SubmittedAt:     r.SubmittedAt,
			SourceFile:      r.SourceFile,
			ScorePercent:    r.ScorePercent,
			Passed:          r.ScorePercent >= passThreshold,
			DurationSeconds: r.DurationSeconds,
			Correct:         r.CorrectCount(),
			Questions:       len(r.AnswersDetail),
		}
		for _, topic := range table {
			tr, ok := r.ErrorsByTopic[topic.ID]
			if !ok || tr.Total == 0 {
				continue
			}
			hr.Topics = append(hr.Topics, model.TopicExport{
				ID:      topic.ID,
				Name:    tr.Name,
				Total:   tr.Total,
				Correct: tr.Correct,
				Errors:  tr.Errors,
				Percent: tr.Percent(),
			})
		}
		export.Results = append(export.Results, hr)
	}
	return export, nil
}
