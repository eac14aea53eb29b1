// Package handler exposes the exam workspace over a JSON HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examprep/internal/app"
	"github.com/pavelanni/examprep/internal/bank"
	"github.com/pavelanni/examprep/internal/exam"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	bank     *bank.Bank
	load     func(context.Context) error
	registry *app.Registry
	table    model.TopicTable
	config   model.ExamConfig
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store    *store.Store
	Bank     *bank.Bank
	Load     func(context.Context) error // loads the bank on first use; may be nil
	Registry *app.Registry
	Table    model.TopicTable
	Config   model.ExamConfig
}

// New creates a new Handler.
func New(d Deps) *Handler {
	if d.Table == nil {
		d.Table = model.DefaultTopics
	}
	return &Handler{
		store:    d.Store,
		bank:     d.Bank,
		load:     d.Load,
		registry: d.Registry,
		table:    d.Table,
		config:   d.Config,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(appI18n.Middleware)

	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/sources", h.handleSources)
		r.Post("/exam/start", h.handleStartExam)
		r.Get("/exam", h.handleExam)
		r.Post("/exam/select", h.handleSelect)
		r.Post("/exam/flag", h.handleFlag)
		r.Post("/exam/goto", h.handleGoTo)
		r.Post("/exam/next", h.handleNext)
		r.Post("/exam/prev", h.handlePrev)
		r.Post("/exam/submit", h.handleSubmit)
		r.Get("/result", h.handleResult)
		r.Post("/result/save", h.handleRetrySave)
		r.Get("/history", h.handleHistory)
		r.Get("/history/{resultID}", h.handleHistoryItem)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorResponse{Error: msgID, Message: appI18n.T(r.Context(), msgID)})
}

// writeError maps domain errors to status codes and localized messages.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var loadErr *bank.LoadError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &loadErr):
		slog.Error("question bank unavailable", "source", loadErr.Source, "error", loadErr.Err)
		writeMessage(w, r, http.StatusServiceUnavailable, "ErrQuestionsUnavailable")
	case errors.Is(err, exam.ErrNoQuestionsAvailable):
		writeMessage(w, r, http.StatusNotFound, "ErrNoQuestions")
	case errors.Is(err, app.ErrNoActiveExam):
		writeMessage(w, r, http.StatusConflict, "ErrNoActiveExam")
	case errors.Is(err, exam.ErrSessionClosed), errors.Is(err, exam.ErrAlreadySubmitted):
		writeMessage(w, r, http.StatusConflict, "ErrExamClosed")
	case errors.Is(err, exam.ErrQuestionIndex), errors.Is(err, exam.ErrOptionIndex):
		writeMessage(w, r, http.StatusBadRequest, "ErrInvalidIndex")
	case errors.Is(err, app.ErrNoResult):
		writeMessage(w, r, http.StatusNotFound, "ErrNoResult")
	case errors.Is(err, store.ErrInvalidCredentials):
		writeMessage(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
	case errors.Is(err, store.ErrEmailTaken):
		writeMessage(w, r, http.StatusConflict, "ErrEmailTaken")
	case errors.As(err, &validationErrs):
		writeMessage(w, r, http.StatusBadRequest, "ErrInvalidSignUp")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, r, http.StatusInternalServerError, "ErrInternal")
	}
}

// decodeBody reads a JSON request body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handler) workspace(r *http.Request) *app.Workspace {
	return h.registry.Workspace(userKey(model.UserFromContext(r.Context())))
}

func (h *Handler) handleSources(w http.ResponseWriter, r *http.Request) {
	if h.load != nil {
		if err := h.load(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}
	sources := append([]string{model.RandomSource}, h.bank.DistinctSources()...)
	writeJSON(w, http.StatusOK, map[string]any{
		"sources":   sources,
		"questions": h.bank.Len(),
		"topics":    h.table,
	})
}
