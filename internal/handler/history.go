package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examprep/internal/exam"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/model"
)

type historyItem struct {
	ID              int64     `json:"id"`
	SubmittedAt     time.Time `json:"submitted_at"`
	SourceFile      string    `json:"source_file"`
	ScorePercent    int       `json:"score_percent"`
	DurationSeconds int       `json:"duration_seconds"`
	Passed          bool      `json:"passed"`
	Verdict         string    `json:"verdict"`
}

type historyDetail struct {
	model.StoredResult
	Passed  bool   `json:"passed"`
	Verdict string `json:"verdict"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	results, err := h.workspace(r).History(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]historyItem, 0, len(results))
	for _, res := range results {
		passed := exam.Passed(res.ScorePercent, h.config.PassThreshold)
		items = append(items, historyItem{
			ID:              res.ID,
			SubmittedAt:     res.SubmittedAt,
			SourceFile:      res.SourceFile,
			ScorePercent:    res.ScorePercent,
			DurationSeconds: res.DurationSeconds,
			Passed:          passed,
			Verdict:         appI18n.Verdict(r.Context(), passed),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "resultID"), 10, 64)
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	user := model.UserFromContext(r.Context())
	res, err := h.store.GetResult(r.Context(), userKey(user), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res == nil {
		writeMessage(w, r, http.StatusNotFound, "ErrResultNotFound")
		return
	}
	passed := exam.Passed(res.ScorePercent, h.config.PassThreshold)
	writeJSON(w, http.StatusOK, historyDetail{
		StoredResult: *res,
		Passed:       passed,
		Verdict:      appI18n.Verdict(r.Context(), passed),
	})
}
