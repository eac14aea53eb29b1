package exam

import (
	"slices"
	"sync"
	"time"

	"github.com/pavelanni/examprep/internal/model"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateActive    State = "active"
	StateTimedOut  State = "timed_out"
	StateSubmitted State = "submitted"
)

// Session tracks one running exam: navigation, answers, flags and the
// countdown. Mutations are only accepted while the session is active.
type Session struct {
	mu sync.Mutex

	questions []model.Question
	source    string
	current   int
	answers   map[int][]int
	flagged   map[int]bool

	initialSeconds   int
	remainingSeconds int
	durationSeconds  int
	timedOut         bool
	state            State
}

// NewSession takes ownership of questions and starts an active session with
// the given time limit.
func NewSession(questions []model.Question, source string, timeLimit time.Duration) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestionsAvailable
	}
	if source == "" {
		source = model.RandomSource
	}
	seconds := int(timeLimit / time.Second)
	return &Session{
		questions:        questions,
		source:           source,
		answers:          make(map[int][]int),
		flagged:          make(map[int]bool),
		initialSeconds:   seconds,
		remainingSeconds: seconds,
		state:            StateActive,
	}, nil
}

// SelectOption records a click on an option. Single-answer questions keep
// only the last choice; multi-answer questions toggle the option.
func (s *Session) SelectOption(qIndex, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrSessionClosed
	}
	if qIndex < 0 || qIndex >= len(s.questions) {
		return ErrQuestionIndex
	}
	q := s.questions[qIndex]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrOptionIndex
	}

	if q.SingleAnswer() {
		s.answers[qIndex] = []int{optionIndex}
		return nil
	}

	answer := s.answers[qIndex]
	if i := slices.Index(answer, optionIndex); i >= 0 {
		answer = slices.Delete(slices.Clone(answer), i, i+1)
	} else {
		answer = append(slices.Clone(answer), optionIndex)
	}
	if len(answer) == 0 {
		delete(s.answers, qIndex)
		return nil
	}
	s.answers[qIndex] = answer
	return nil
}

// ToggleFlag marks or unmarks a question for review.
func (s *Session) ToggleFlag(qIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrSessionClosed
	}
	if qIndex < 0 || qIndex >= len(s.questions) {
		return ErrQuestionIndex
	}
	if s.flagged[qIndex] {
		delete(s.flagged, qIndex)
	} else {
		s.flagged[qIndex] = true
	}
	return nil
}

// GoTo moves to question index. Out-of-range indices are ignored. It
// reports whether the current index changed.
func (s *Session) GoTo(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goToLocked(index)
}

// Next moves forward one question, stopping at the last one.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goToLocked(s.current + 1)
}

// Previous moves back one question, stopping at the first one.
func (s *Session) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goToLocked(s.current - 1)
}

func (s *Session) goToLocked(index int) bool {
	if s.state != StateActive || index < 0 || index >= len(s.questions) || index == s.current {
		return false
	}
	s.current = index
	return true
}

// Tick consumes one second. When the time runs out the session times out
// and is submitted; Tick then reports true.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return false
	}
	if s.remainingSeconds > 0 {
		s.remainingSeconds--
	}
	if s.remainingSeconds > 0 {
		return false
	}
	s.state = StateTimedOut
	s.timedOut = true
	s.submitLocked()
	return true
}

// Submit ends the session. Only the first call succeeds.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitted {
		return ErrAlreadySubmitted
	}
	s.submitLocked()
	return nil
}

func (s *Session) submitLocked() {
	s.durationSeconds = s.initialSeconds - s.remainingSeconds
	s.state = StateSubmitted
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TimedOut reports whether the session was submitted by the countdown.
func (s *Session) TimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timedOut
}

// Source returns the source filter the exam was assembled with.
func (s *Session) Source() string {
	return s.source
}

// Len returns the number of questions.
func (s *Session) Len() int {
	return len(s.questions)
}

// CurrentIndex returns the index of the displayed question.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Current returns the displayed question.
func (s *Session) Current() model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.current]
}

// Question returns the question at index i.
func (s *Session) Question(i int) (model.Question, bool) {
	if i < 0 || i >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[i], true
}

// Answer returns a copy of the selected options for question i in
// selection order, nil when unanswered.
func (s *Session) Answer(i int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.answers[i])
}

// IsAnswered reports whether question i has at least one selected option.
func (s *Session) IsAnswered(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers[i]) > 0
}

// IsFlagged reports whether question i is flagged.
func (s *Session) IsFlagged(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flagged[i]
}

// AnsweredCount returns the number of answered questions.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// FlaggedCount returns the number of flagged questions.
func (s *Session) FlaggedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flagged)
}

// RemainingSeconds returns the countdown value.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingSeconds
}

// DurationSeconds returns the time spent, frozen at submission.
func (s *Session) DurationSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitted {
		return s.initialSeconds - s.remainingSeconds
	}
	return s.durationSeconds
}
