// Package app holds the per-user application state that sits between the
// exam engine and whatever renders it.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pavelanni/examprep/internal/exam"
	"github.com/pavelanni/examprep/internal/model"
)

var (
	// ErrNoActiveExam is returned by exam commands before any exam was started.
	ErrNoActiveExam = errors.New("no exam in progress")
	// ErrNoResult is returned when no exam has been submitted yet.
	ErrNoResult = errors.New("no submitted exam")
)

// ResultStore persists submitted results.
type ResultStore interface {
	InsertResult(ctx context.Context, rec model.ResultRecord) (model.StoredResult, error)
	ResultsByUser(ctx context.Context, userID string) ([]model.StoredResult, error)
}

// Outcome is the scored result of the last submitted exam together with its
// persistence status.
type Outcome struct {
	Result    model.ExamResult    `json:"result"`
	Stored    *model.StoredResult `json:"stored,omitempty"`
	Source    string              `json:"source"`
	Passed    bool                `json:"passed"`
	TimedOut  bool                `json:"timed_out"`
	Saved     bool                `json:"saved"`
	SaveError string              `json:"save_error,omitempty"`

	session *exam.Session
}

// View is the read-only state a rendering layer needs.
type View struct {
	Exam    *exam.Snapshot `json:"exam,omitempty"`
	Outcome *Outcome       `json:"outcome,omitempty"`
}

// Workspace is the application state of one user. All methods are safe for
// concurrent use.
type Workspace struct {
	userID    string
	ctx       context.Context
	load      func(context.Context) error
	bank      exam.QuestionSource
	table     model.TopicTable
	assembler *exam.Assembler
	store     ResultStore
	cfg       model.ExamConfig
	timer     *exam.Timer
	pending   sync.WaitGroup

	// ctl serializes countdown changes with session swaps. It is never
	// taken on the timer goroutine, and w.mu is never held while the
	// timer is stopped or started.
	ctl sync.Mutex

	mu      sync.Mutex
	session *exam.Session
	outcome *Outcome

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// StartExam assembles a new exam and starts its countdown. An exam already
// in progress is discarded. On error the previous state is left untouched.
func (w *Workspace) StartExam(ctx context.Context, source string) (exam.Snapshot, error) {
	if source == "" {
		source = model.RandomSource
	}
	if w.load != nil {
		if err := w.load(ctx); err != nil {
			return exam.Snapshot{}, err
		}
	}

	total := w.cfg.DrillLimit
	if source == model.RandomSource {
		total = w.cfg.NumQuestions
	}
	questions, err := w.assembler.Assemble(total, source, w.bank)
	if err != nil {
		return exam.Snapshot{}, err
	}
	sess, err := exam.NewSession(questions, source, w.cfg.TimeLimit)
	if err != nil {
		return exam.Snapshot{}, err
	}

	w.ctl.Lock()
	w.timer.Stop()
	w.mu.Lock()
	w.session = sess
	snap := sess.Snapshot(w.table.DisplayName)
	w.mu.Unlock()
	w.timer.Start(w.ctx, w.tick(sess))
	w.ctl.Unlock()

	slog.Info("exam started", "user", w.userID, "source", source, "questions", len(questions))
	w.publish(Event{Kind: EventStarted, Exam: &snap})
	return snap, nil
}

// tick returns the countdown callback for sess. It runs on the timer
// goroutine; subscribers it publishes to may take w.mu.
func (w *Workspace) tick(sess *exam.Session) func() bool {
	return func() bool {
		if sess.Tick() {
			w.pending.Add(1)
			go w.finishTimedOut(sess)
			return false
		}
		if sess.State() != exam.StateActive {
			return false
		}
		snap := sess.Snapshot(w.table.DisplayName)
		w.publish(Event{Kind: EventTick, Exam: &snap})
		return true
	}
}

func (w *Workspace) finishTimedOut(sess *exam.Session) {
	defer w.pending.Done()

	w.mu.Lock()
	_, events, err := w.completeLocked(w.ctx, sess)
	w.mu.Unlock()
	if err != nil {
		slog.Error("complete timed out exam", "user", w.userID, "error", err)
		return
	}
	if len(events) > 0 {
		slog.Info("exam timed out", "user", w.userID, "source", sess.Source())
	}
	w.publish(events...)
}

func (w *Workspace) activeSession() (*exam.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return nil, ErrNoActiveExam
	}
	return w.session, nil
}

func (w *Workspace) changed(sess *exam.Session) exam.Snapshot {
	snap := sess.Snapshot(w.table.DisplayName)
	w.publish(Event{Kind: EventChanged, Exam: &snap})
	return snap
}

// SelectOption records a click on option opt of question q.
func (w *Workspace) SelectOption(q, opt int) (exam.Snapshot, error) {
	sess, err := w.activeSession()
	if err != nil {
		return exam.Snapshot{}, err
	}
	if err := sess.SelectOption(q, opt); err != nil {
		return exam.Snapshot{}, err
	}
	return w.changed(sess), nil
}

// ToggleFlag marks or unmarks question q for review.
func (w *Workspace) ToggleFlag(q int) (exam.Snapshot, error) {
	sess, err := w.activeSession()
	if err != nil {
		return exam.Snapshot{}, err
	}
	if err := sess.ToggleFlag(q); err != nil {
		return exam.Snapshot{}, err
	}
	return w.changed(sess), nil
}

// GoTo jumps to question i. Out-of-range indices leave the exam unchanged.
func (w *Workspace) GoTo(i int) (exam.Snapshot, error) {
	return w.navigate(func(s *exam.Session) bool { return s.GoTo(i) })
}

// Next moves to the following question.
func (w *Workspace) Next() (exam.Snapshot, error) {
	return w.navigate((*exam.Session).Next)
}

// Previous moves to the preceding question.
func (w *Workspace) Previous() (exam.Snapshot, error) {
	return w.navigate((*exam.Session).Previous)
}

func (w *Workspace) navigate(move func(*exam.Session) bool) (exam.Snapshot, error) {
	sess, err := w.activeSession()
	if err != nil {
		return exam.Snapshot{}, err
	}
	if !move(sess) {
		return sess.Snapshot(w.table.DisplayName), nil
	}
	return w.changed(sess), nil
}

// Submit stops the countdown, scores the exam and persists the result. A
// failed save is not an error: the outcome is returned with Saved false.
// Submitting an already completed exam returns its outcome together with
// exam.ErrAlreadySubmitted.
func (w *Workspace) Submit(ctx context.Context) (Outcome, error) {
	w.ctl.Lock()
	w.timer.Stop()
	out, events, completed, err := w.submit(ctx)
	w.ctl.Unlock()
	if err != nil {
		return Outcome{}, err
	}

	w.publish(events...)
	if completed {
		return out, exam.ErrAlreadySubmitted
	}
	return out, nil
}

func (w *Workspace) submit(ctx context.Context) (Outcome, []Event, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sess := w.session
	if sess == nil {
		return Outcome{}, nil, false, ErrNoActiveExam
	}
	completed := w.outcome != nil && w.outcome.session == sess
	if err := sess.Submit(); err != nil && !errors.Is(err, exam.ErrAlreadySubmitted) {
		return Outcome{}, nil, false, err
	}
	out, events, err := w.completeLocked(ctx, sess)
	if err != nil {
		return Outcome{}, nil, false, err
	}
	return *out, events, completed, nil
}

// completeLocked scores and saves sess once. Later calls for the same
// session return the existing outcome and no events.
func (w *Workspace) completeLocked(ctx context.Context, sess *exam.Session) (*Outcome, []Event, error) {
	if w.outcome != nil && w.outcome.session == sess {
		return w.outcome, nil, nil
	}
	result, err := exam.Score(sess, w.table)
	if err != nil {
		return nil, nil, err
	}
	out := &Outcome{
		Result:   result,
		Source:   sess.Source(),
		Passed:   exam.Passed(result.ScorePercent, w.cfg.PassThreshold),
		TimedOut: sess.TimedOut(),
		session:  sess,
	}
	w.outcome = out
	slog.Info("exam submitted", "user", w.userID, "source", out.Source,
		"score", result.ScorePercent, "duration", result.DurationSeconds, "timed_out", out.TimedOut)

	events := []Event{{Kind: EventSubmitted, Outcome: out.copy()}}
	events = append(events, w.saveLocked(ctx, out))
	return out, events, nil
}

func (w *Workspace) saveLocked(ctx context.Context, out *Outcome) Event {
	stored, err := w.store.InsertResult(ctx, model.ResultRecord{
		UserID:     w.userID,
		SourceFile: out.Source,
		ExamResult: out.Result,
	})
	if err != nil {
		slog.Error("save exam result", "user", w.userID, "error", err)
		out.Saved = false
		out.SaveError = err.Error()
		return Event{Kind: EventSaveFailed, Outcome: out.copy()}
	}
	out.Saved = true
	out.SaveError = ""
	out.Stored = &stored
	return Event{Kind: EventSaved, Outcome: out.copy()}
}

// RetrySave persists the last outcome again after a failed save.
func (w *Workspace) RetrySave(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.outcome == nil {
		w.mu.Unlock()
		return Outcome{}, ErrNoResult
	}
	if w.outcome.Saved {
		res := *w.outcome
		w.mu.Unlock()
		return res, nil
	}
	ev := w.saveLocked(ctx, w.outcome)
	res := *w.outcome
	w.mu.Unlock()

	w.publish(ev)
	return res, nil
}

// LastOutcome returns the outcome of the last submitted exam.
func (w *Workspace) LastOutcome() (Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.outcome == nil {
		return Outcome{}, ErrNoResult
	}
	return *w.outcome, nil
}

// History returns the user's stored results, newest first.
func (w *Workspace) History(ctx context.Context) ([]model.StoredResult, error) {
	return w.store.ResultsByUser(ctx, w.userID)
}

// Snapshot returns the current exam (if any) and the last outcome (if any).
func (w *Workspace) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	var v View
	if w.session != nil {
		snap := w.session.Snapshot(w.table.DisplayName)
		v.Exam = &snap
	}
	if w.outcome != nil {
		v.Outcome = w.outcome.copy()
	}
	return v
}

// Close stops the countdown and waits for a pending timeout submission.
func (w *Workspace) Close() {
	w.ctl.Lock()
	w.timer.Stop()
	w.ctl.Unlock()
	w.pending.Wait()
}

func (o *Outcome) copy() *Outcome {
	c := *o
	return &c
}
