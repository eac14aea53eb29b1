package model

import "time"

// HistoryExport is the top-level JSON structure for a user's history export.
type HistoryExport struct {
	UserID     string          `json:"user_id"`
	Email      string          `json:"email"`
	ExportedAt time.Time       `json:"exported_at"`
	Results    []HistoryResult `json:"results"`
}

// HistoryResult holds one stored exam result for export.
type HistoryResult struct {
	ID              int64         `json:"id"`
	SubmittedAt     time.Time     `json:"submitted_at"`
	SourceFile      string        `json:"source_file"`
	ScorePercent    int           `json:"score_percent"`
	Passed          bool          `json:"passed"`
	DurationSeconds int           `json:"duration_seconds"`
	Correct         int           `json:"correct"`
	Questions       int           `json:"questions"`
	Topics          []TopicExport `json:"topics"`
}

// TopicExport is a per-topic row of an exported result.
type TopicExport struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
	Errors  int    `json:"errors"`
	Percent int    `json:"percent"`
}
