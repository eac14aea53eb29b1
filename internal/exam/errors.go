package exam

import "errors"

var (
	// ErrNoQuestionsAvailable means assembly produced an empty exam. Callers
	// abort the start and let the user pick another source.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrSessionClosed is returned by mutations after the session left the
	// active state.
	ErrSessionClosed = errors.New("exam session is closed")
	// ErrAlreadySubmitted is returned by a second Submit.
	ErrAlreadySubmitted = errors.New("exam already submitted")
	// ErrNotSubmitted is returned when scoring a session that is still running.
	ErrNotSubmitted = errors.New("exam not submitted")
	// ErrQuestionIndex reports a question index outside the exam.
	ErrQuestionIndex = errors.New("question index out of range")
	// ErrOptionIndex reports an option index outside the question.
	ErrOptionIndex = errors.New("option index out of range")
)
