package app

import "github.com/pavelanni/examprep/internal/exam"

// EventKind names a workspace state change.
type EventKind string

const (
	EventStarted    EventKind = "started"
	EventChanged    EventKind = "changed"
	EventTick       EventKind = "tick"
	EventSubmitted  EventKind = "submitted"
	EventSaved      EventKind = "saved"
	EventSaveFailed EventKind = "save_failed"
)

// Event is delivered to subscribers. Exam is set for started, changed and
// tick; Outcome for submitted, saved and save_failed.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Exam    *exam.Snapshot `json:"exam,omitempty"`
	Outcome *Outcome       `json:"outcome,omitempty"`
}

// Subscribe registers fn for all future events and returns a function that
// removes it. Tick events are delivered on the countdown goroutine. fn may
// read workspace state and run answer or navigation commands, but must not
// call StartExam, Submit or Close synchronously.
func (w *Workspace) Subscribe(fn func(Event)) (unsubscribe func()) {
	w.subMu.Lock()
	defer w.subMu.Unlock()

	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	return func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		delete(w.subs, id)
	}
}

func (w *Workspace) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	w.subMu.Lock()
	fns := make([]func(Event), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.subMu.Unlock()

	for _, e := range events {
		for _, fn := range fns {
			fn(e)
		}
	}
}
