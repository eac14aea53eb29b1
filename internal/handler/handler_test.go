package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examprep/internal/app"
	"github.com/pavelanni/examprep/internal/bank"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/store"
)

const testFeed = `[
  {"question": "Q1", "options": ["yes", "no"], "correct": [0], "topic": "collaboration", "source_file": "set_a.pdf"},
  {"question": "Q2", "options": ["yes", "no"], "correct": [0], "topic": "self_service", "source_file": "set_a.pdf"},
  {"question": "Q3", "options": ["yes", "no", "maybe"], "correct": [0, 2], "topic": "database_security", "source_file": "set_b.pdf"}
]`

type testServer struct {
	router http.Handler
	store  *store.Store
}

func newTestServer(t *testing.T, load func(context.Context) error) *testServer {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	b := bank.New()
	if load == nil {
		src := bank.BytesSource{Name: "test", Data: []byte(testFeed)}
		load = func(ctx context.Context) error { return b.Load(ctx, src) }
	}

	cfg := model.DefaultExamConfig()
	cfg.TickInterval = time.Hour
	cfg.SecureCookies = false

	reg := app.NewRegistry(app.Options{
		Bank:  b,
		Load:  load,
		Table: model.DefaultTopics,
		Store: s,
		Exam:  cfg,
		Rand:  rand.New(rand.NewPCG(3, 4)),
	})
	t.Cleanup(reg.Close)

	h := New(Deps{Store: s, Bank: b, Load: load, Registry: reg, Table: model.DefaultTopics, Config: cfg})
	r := chi.NewRouter()
	h.Routes(r)
	return &testServer{router: r, store: s}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	creds := map[string]string{"email": email, "password": "correct horse battery"}
	if rec := ts.do(t, http.MethodPost, "/auth/signup", creds, nil); rec.Code != http.StatusCreated {
		t.Fatalf("signup: status %d: %s", rec.Code, rec.Body)
	}
	rec := ts.do(t, http.MethodPost, "/auth/login", creds, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", rec.Code, rec.Body)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return v
}

func TestRequiresAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/sources", "/exam", "/result", "/history"} {
		rec := ts.do(t, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without cookie: status %d, want 401", path, rec.Code)
		}
	}
	bogus := &http.Cookie{Name: sessionCookieName, Value: "deadbeef"}
	if rec := ts.do(t, http.MethodGet, "/sources", nil, bogus); rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus cookie: status %d, want 401", rec.Code)
	}
}

func TestAuthErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t, "a@example.com")

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"duplicate email", "/auth/signup", map[string]string{"email": "a@example.com", "password": "another password"}, http.StatusConflict},
		{"invalid email", "/auth/signup", map[string]string{"email": "nope", "password": "long enough password"}, http.StatusBadRequest},
		{"unknown field", "/auth/signup", map[string]string{"user": "x"}, http.StatusBadRequest},
		{"wrong password", "/auth/login", map[string]string{"email": "a@example.com", "password": "wrong password"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if resp := decode[errorResponse](t, rec); resp.Message == "" {
				t.Error("expected a localized message")
			}
		})
	}
}

func TestExamFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.login(t, "student@example.com")

	rec := ts.do(t, http.MethodGet, "/sources", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("sources: status %d", rec.Code)
	}
	sources := decode[struct {
		Sources   []string `json:"sources"`
		Questions int      `json:"questions"`
	}](t, rec)
	if len(sources.Sources) != 3 || sources.Sources[0] != model.RandomSource || sources.Questions != 3 {
		t.Errorf("unexpected sources: %+v", sources)
	}

	if rec := ts.do(t, http.MethodGet, "/exam", nil, cookie); rec.Code != http.StatusConflict {
		t.Errorf("GET /exam before start: status %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/exam/start", map[string]string{"source": "set_a.pdf"}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status %d: %s", rec.Code, rec.Body)
	}
	snap := decode[struct {
		Source   string `json:"source"`
		Total    int    `json:"total"`
		Question struct {
			Text    string   `json:"text"`
			Options []string `json:"options"`
		} `json:"question"`
	}](t, rec)
	if snap.Source != "set_a.pdf" || snap.Total != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Question.Options[0] != "A. yes" {
		t.Errorf("options not labelled: %v", snap.Question.Options)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte(`"correct"`)) {
		t.Error("snapshot leaks correct answers")
	}

	if rec := ts.do(t, http.MethodPost, "/exam/select", map[string]int{"question": 0, "option": 0}, cookie); rec.Code != http.StatusOK {
		t.Fatalf("select: status %d: %s", rec.Code, rec.Body)
	}
	if rec := ts.do(t, http.MethodPost, "/exam/select", map[string]int{"question": 0, "option": 5}, cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("select bad option: status %d, want 400", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/exam/flag", map[string]int{"question": 1}, cookie); rec.Code != http.StatusOK {
		t.Errorf("flag: status %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/exam/next", nil, cookie)
	if got := decode[struct {
		CurrentIndex int `json:"current_index"`
		Flagged      int `json:"flagged"`
	}](t, rec); got.CurrentIndex != 1 || got.Flagged != 1 {
		t.Errorf("after next: %+v", got)
	}
	rec = ts.do(t, http.MethodPost, "/exam/goto", map[string]int{"index": 99}, cookie)
	if got := decode[struct {
		CurrentIndex int `json:"current_index"`
	}](t, rec); got.CurrentIndex != 1 {
		t.Errorf("goto out of range moved to %d", got.CurrentIndex)
	}
	if rec := ts.do(t, http.MethodPost, "/exam/prev", nil, cookie); rec.Code != http.StatusOK {
		t.Errorf("prev: status %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/exam/submit", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d: %s", rec.Code, rec.Body)
	}
	out := decode[struct {
		Result  model.ExamResult `json:"result"`
		Saved   bool             `json:"saved"`
		Passed  bool             `json:"passed"`
		Verdict string           `json:"verdict"`
		Summary string           `json:"summary"`
	}](t, rec)
	if out.Result.ScorePercent != 50 || !out.Saved || out.Passed {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if out.Verdict != "Not passed" || out.Summary != "1 of 2 correct (50%)" {
		t.Errorf("verdict=%q summary=%q", out.Verdict, out.Summary)
	}
	if len(out.Result.ErrorsByTopic) != len(model.DefaultTopics) {
		t.Errorf("errors_by_topic has %d topics, want %d", len(out.Result.ErrorsByTopic), len(model.DefaultTopics))
	}

	if rec := ts.do(t, http.MethodPost, "/exam/submit", nil, cookie); rec.Code != http.StatusConflict {
		t.Errorf("second submit: status %d, want 409", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/result", nil, cookie); rec.Code != http.StatusOK {
		t.Errorf("result: status %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/history", nil, cookie)
	history := decode[[]historyItem](t, rec)
	if len(history) != 1 || history[0].SourceFile != "set_a.pdf" || history[0].ScorePercent != 50 {
		t.Fatalf("unexpected history: %+v", history)
	}

	rec = ts.do(t, http.MethodGet, "/history/"+strconv.FormatInt(history[0].ID, 10), nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("history item: status %d", rec.Code)
	}
	detail := decode[historyDetail](t, rec)
	if len(detail.AnswersDetail) != 2 {
		t.Errorf("history item has %d answers, want 2", len(detail.AnswersDetail))
	}

	other := ts.login(t, "other@example.com")
	if rec := ts.do(t, http.MethodGet, "/history/"+strconv.FormatInt(history[0].ID, 10), nil, other); rec.Code != http.StatusNotFound {
		t.Errorf("other user's result: status %d, want 404", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/history/abc", nil, cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("bad result id: status %d, want 400", rec.Code)
	}
}

func TestStartExamErrors(t *testing.T) {
	t.Run("no questions", func(t *testing.T) {
		ts := newTestServer(t, nil)
		cookie := ts.login(t, "a@example.com")
		rec := ts.do(t, http.MethodPost, "/exam/start", map[string]string{"source": "missing.pdf"}, cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status %d, want 404", rec.Code)
		}
	})

	t.Run("bank unavailable", func(t *testing.T) {
		failing := func(context.Context) error {
			return &bank.LoadError{Source: "https://example.invalid/q.json", Err: errors.New("connection refused")}
		}
		ts := newTestServer(t, failing)
		cookie := ts.login(t, "a@example.com")
		rec := ts.do(t, http.MethodPost, "/exam/start", nil, cookie)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status %d, want 503", rec.Code)
		}
		if resp := decode[errorResponse](t, rec); resp.Error != "ErrQuestionsUnavailable" {
			t.Errorf("error = %q", resp.Error)
		}
	})
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.login(t, "a@example.com")

	if rec := ts.do(t, http.MethodPost, "/auth/logout", nil, cookie); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/sources", nil, cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status %d, want 401", rec.Code)
	}
}
