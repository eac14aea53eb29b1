package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pavelanni/examprep/internal/model"
)

const sessionCookieName = "session"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// userKey is the opaque id the exam core and result store know a user by.
func userKey(u *model.User) string {
	return strconv.FormatInt(u.ID, 10)
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeMessage(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		user, err := h.store.CurrentSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			writeMessage(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}
		if user == nil {
			writeMessage(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeBody(r, &c); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	user, err := h.store.SignUp(c.Email, c.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user signed up", "user", user.ID)
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeBody(r, &c); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	user, token, err := h.store.SignIn(c.Email, c.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.store.SignOut(cookie.Value); err != nil {
			slog.Error("failed to delete auth session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}
