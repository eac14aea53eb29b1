package handler

import (
	"net/http"

	"github.com/pavelanni/examprep/internal/app"
	"github.com/pavelanni/examprep/internal/exam"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
)

type startRequest struct {
	Source string `json:"source"`
}

type selectRequest struct {
	Question int `json:"question"`
	Option   int `json:"option"`
}

type questionRequest struct {
	Question int `json:"question"`
}

type gotoRequest struct {
	Index int `json:"index"`
}

// outcomeResponse is an Outcome with its localized summary lines.
type outcomeResponse struct {
	app.Outcome
	Verdict string `json:"verdict"`
	Summary string `json:"summary"`
	Notice  string `json:"notice,omitempty"`
}

func (h *Handler) newOutcomeResponse(r *http.Request, out app.Outcome) outcomeResponse {
	ctx := r.Context()
	resp := outcomeResponse{
		Outcome: out,
		Verdict: appI18n.Verdict(ctx, out.Passed),
		Summary: appI18n.Td(ctx, "ScoreSummary", map[string]any{
			"Correct": out.Result.CorrectCount(),
			"Total":   len(out.Result.AnswersDetail),
			"Percent": out.Result.ScorePercent,
		}),
	}
	switch {
	case !out.Saved:
		resp.Notice = appI18n.T(ctx, "ResultNotSaved")
	case out.TimedOut:
		resp.Notice = appI18n.T(ctx, "ExamTimedOut")
	}
	return resp
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	snap, err := h.workspace(r).StartExam(r.Context(), req.Source)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleExam(w http.ResponseWriter, r *http.Request) {
	v := h.workspace(r).Snapshot()
	if v.Exam == nil {
		writeError(w, r, app.ErrNoActiveExam)
		return
	}
	writeJSON(w, http.StatusOK, v.Exam)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	h.writeSnapshot(w, r)(h.workspace(r).SelectOption(req.Question, req.Option))
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	h.writeSnapshot(w, r)(h.workspace(r).ToggleFlag(req.Question))
}

func (h *Handler) handleGoTo(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	h.writeSnapshot(w, r)(h.workspace(r).GoTo(req.Index))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, r)(h.workspace(r).Next())
}

func (h *Handler) handlePrev(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, r)(h.workspace(r).Previous())
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, r *http.Request) func(exam.Snapshot, error) {
	return func(snap exam.Snapshot, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	out, err := h.workspace(r).Submit(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newOutcomeResponse(r, out))
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	out, err := h.workspace(r).LastOutcome()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newOutcomeResponse(r, out))
}

func (h *Handler) handleRetrySave(w http.ResponseWriter, r *http.Request) {
	out, err := h.workspace(r).RetrySave(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newOutcomeResponse(r, out))
}
