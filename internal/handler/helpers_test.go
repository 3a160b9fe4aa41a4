package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/btcdash/internal/middleware"
)

const testCSRFToken = "test-csrf-token"

type routerOption func(*RouterDeps)

func newTestRouter(t *testing.T, authSvc *mockAuthService, opts ...routerOption) http.Handler {
	t.Helper()
	deps := &RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		SessionFinder:     &mockSessionFinder{},
		CORSAllowedOrigin: "http://localhost:8080",
		AuthService:       authSvc,
		AuthConfig:        AuthHandlerConfig{SessionMaxAge: 3600},
		ChartService:      &mockChartService{},
		StaticPages:       &mockStaticPages{},
		Templates:         MustTemplates(),
		Now:               func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(deps)
	}
	return NewRouter(deps)
}

// postForm はCSRFトークン付きのフォームPOSTリクエストを生成する。
func postForm(path string, form url.Values) *http.Request {
	form.Set(middleware.CSRFFormField, testCSRFToken)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	return req
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sess-1"})
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, want, w.Body.String())
	}
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	assertStatus(t, w, http.StatusFound)
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func assertBodyContains(t *testing.T, w *httptest.ResponseRecorder, substrings ...string) {
	t.Helper()
	body := w.Body.String()
	for _, s := range substrings {
		if !strings.Contains(body, s) {
			t.Errorf("body should contain %q\nbody: %s", s, body)
		}
	}
}

func assertBodyNotContains(t *testing.T, w *httptest.ResponseRecorder, substrings ...string) {
	t.Helper()
	body := w.Body.String()
	for _, s := range substrings {
		if strings.Contains(body, s) {
			t.Errorf("body should not contain %q", s)
		}
	}
}

