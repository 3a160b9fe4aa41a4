package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hitoshi/btcdash/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionMaxAge:       3600,
		ClientIDMaxAttempts: 10,
		PasswordMinLength:   6,
		BcryptCost:          4,
		ChartYears:          5,
		RateLimitGeneral:    120,
		BaseURL:             "http://localhost:8080",
		CORSAllowedOrigin:   "http://localhost:8080",
	}
}

func TestNewServer_WiresRoutes(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	srv, err := newServer(testConfig(), db, newRegistry())
	require.NoError(t, err)
	defer srv.rateLimiter.Stop()

	t.Run("ログイン画面はDBなしで表示できる", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="generate_otp"`)
	})

	t.Run("ヘルスチェックはDBへPingする", func(t *testing.T) {
		mock.ExpectPing()
		w := httptest.NewRecorder()
		srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("メトリクスにアプリとランタイムの値が含まれる", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.True(t, strings.Contains(body, "btcdash_otp_issued_total"), "missing app metric")
		assert.True(t, strings.Contains(body, "go_goroutines"), "missing runtime metric")
	})

	t.Run("保護ページは未ログインでリダイレクト", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
