package model

import (
	"context"
	"time"
)

// RandomSource is the source filter that selects from the whole bank using
// the topic distribution instead of drilling a single source.
const RandomSource = "Random"

// User represents a signed-up user of the practice tool.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Question is a normalized multiple-choice question. Options carry their
// "A. ", "B. ", ... labels once loaded.
type Question struct {
	Text       string   `json:"question"`
	Options    []string `json:"options"`
	Correct    []int    `json:"correct"`
	Topic      string   `json:"topic"`
	SourceFile string   `json:"source_file"`
}

// SingleAnswer reports whether the question has exactly one correct option.
func (q Question) SingleAnswer() bool {
	return len(q.Correct) == 1
}

// QuestionImport is the raw shape of one entry in the question feed.
type QuestionImport struct {
	Question   string   `json:"question" validate:"required"`
	Options    []string `json:"options" validate:"min=2,max=26,dive,required"`
	Correct    []int    `json:"correct" validate:"min=1,dive,min=0"`
	Topic      string   `json:"topic" validate:"required"`
	SourceFile string   `json:"source_file" validate:"required"`
}

// TopicResult aggregates the outcome of one topic.
type TopicResult struct {
	Name    string `json:"name"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
	Errors  int    `json:"errors"`
}

// Percent returns the rounded share of correct answers, 0 for an empty topic.
func (t TopicResult) Percent() int {
	if t.Total == 0 {
		return 0
	}
	return (t.Correct*200 + t.Total) / (2 * t.Total)
}

// AnswerDetail is the review record for one question of a finished exam.
type AnswerDetail struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	UserAnswer    []int    `json:"userAnswer"`
	CorrectAnswer []int    `json:"correctAnswer"`
	IsCorrect     bool     `json:"isCorrect"`
	Topic         string   `json:"topic"`
}

// ExamResult is produced once at submission and never changed afterwards.
type ExamResult struct {
	ScorePercent    int                    `json:"score_percent"`
	DurationSeconds int                    `json:"duration_seconds"`
	ErrorsByTopic   map[string]TopicResult `json:"errors_by_topic"`
	AnswersDetail   []AnswerDetail         `json:"answers_detail"`
}

// CorrectCount returns the number of correctly answered questions.
func (r ExamResult) CorrectCount() int {
	n := 0
	for _, d := range r.AnswersDetail {
		if d.IsCorrect {
			n++
		}
	}
	return n
}

// ResultRecord is an ExamResult tagged at the persistence boundary.
type ResultRecord struct {
	UserID     string `json:"user_id"`
	SourceFile string `json:"source_file"`
	ExamResult
}

// StoredResult is a ResultRecord as returned by the result store.
type StoredResult struct {
	ID          int64     `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
	ResultRecord
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	NumQuestions  int           // size of a "Random" exam
	DrillLimit    int           // nominal size passed for single-source drills
	TimeLimit     time.Duration // countdown per exam
	TickInterval  time.Duration // countdown resolution, one second in production
	PassThreshold int           // score_percent needed to pass
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
}

// DefaultExamConfig mirrors the defaults of the CLI flags.
func DefaultExamConfig() ExamConfig {
	return ExamConfig{
		NumQuestions:  60,
		DrillLimit:    1000,
		TimeLimit:     90 * time.Minute,
		TickInterval:  time.Second,
		PassThreshold: 70,
		SecureCookies: true,
	}
}
