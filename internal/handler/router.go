package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/btcdash/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder
	SessionFinder     middleware.SessionFinder
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ページ
	ChartService ChartServiceInterface
	StaticPages  StaticPages
	Templates    *Templates
	Now          func() time.Time
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CSRF → [CORS(/api)] → Session → RateLimit
//
// /healthと/metricsはCSRFより外側に配置する。
// ログイン・OTP発行ルートはレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Templates)
	pageHandler := NewPageHandler(deps.AuthService, deps.StaticPages, deps.Templates)
	chartHandler := NewChartHandler(deps.ChartService, deps.Templates, deps.Now)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// --- 認証不要のルート ---
		r.Get("/", pageHandler.Home)
		r.Post("/", pageHandler.Home)
		r.Get("/login", authHandler.LoginPage)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Session → RateLimit
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder,
				middleware.WithStoreErrorHandler(http.HandlerFunc(deps.Templates.RenderError))))
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}

			r.Get("/set-password", authHandler.SetPasswordPage)
			r.Post("/set-password", authHandler.SetPassword)
			r.Get("/dashboard", pageHandler.Dashboard)
			r.Get("/bitcoin", chartHandler.BitcoinPage)
			r.Get("/insurance", pageHandler.Insurance)
		})

		// --- JSON API ---
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}

			r.Get("/bitcoin", chartHandler.BitcoinJSON)
		})
	})

	return r
}
