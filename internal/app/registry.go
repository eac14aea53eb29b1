package app

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/pavelanni/examprep/internal/exam"
	"github.com/pavelanni/examprep/internal/model"
)

// Options configures a Registry.
type Options struct {
	Bank  exam.QuestionSource
	Load  func(context.Context) error // called before each exam start; may be nil
	Table model.TopicTable
	Store ResultStore
	Exam  model.ExamConfig
	Rand  *rand.Rand // nil for a randomly seeded source
}

// Registry hands out one Workspace per user, created on first use.
type Registry struct {
	opts      Options
	assembler *exam.Assembler
	ctx       context.Context
	cancel    context.CancelFunc

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRegistry creates an empty registry. Countdowns of its workspaces run
// until Close.
func NewRegistry(opts Options) *Registry {
	if opts.Table == nil {
		opts.Table = model.DefaultTopics
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		opts:       opts,
		assembler:  exam.NewAssembler(opts.Table, opts.Rand),
		ctx:        ctx,
		cancel:     cancel,
		workspaces: make(map[string]*Workspace),
	}
}

// Workspace returns the workspace of userID, creating it if needed.
func (r *Registry) Workspace(userID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.workspaces[userID]; ok {
		return w
	}
	w := &Workspace{
		userID:    userID,
		ctx:       r.ctx,
		load:      r.opts.Load,
		bank:      r.opts.Bank,
		table:     r.opts.Table,
		assembler: r.assembler,
		store:     r.opts.Store,
		cfg:       r.opts.Exam,
		timer:     exam.NewTimer(r.opts.Exam.TickInterval),
		subs:      make(map[int]func(Event)),
	}
	r.workspaces[userID] = w
	return w
}

// Close stops every countdown.
func (r *Registry) Close() {
	r.mu.Lock()
	ws := make([]*Workspace, 0, len(r.workspaces))
	for _, w := range r.workspaces {
		ws = append(ws, w)
	}
	r.mu.Unlock()

	for _, w := range ws {
		w.Close()
	}
	r.cancel()
}
