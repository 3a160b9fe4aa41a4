// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/btcdash/internal/auth"
	"github.com/hitoshi/btcdash/internal/middleware"
	"github.com/hitoshi/btcdash/internal/model"
)

// ログインフォームのフィールド名
const (
	fieldLogin       = "login"
	fieldOTP         = "otp"
	fieldGenerateOTP = "generate_otp"
	fieldDoLogin     = "do_login"
	fieldPassword1   = "password1"
	fieldPassword2   = "password2"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	IssueOTP(ctx context.Context, username string) (*auth.IssuedOTP, error)
	VerifyOTP(ctx context.Context, username, code string) (*auth.LoginResult, error)
	SetPassword(ctx context.Context, userID, currentSessionID, password, confirm string) (*model.Session, error)
	CurrentAccount(ctx context.Context, userID string) (*auth.Account, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOTPログイン・パスワード設定・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	config    AuthHandlerConfig
	templates *Templates
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, templates *Templates) *AuthHandler {
	return &AuthHandler{
		service:   service,
		config:    config,
		templates: templates,
	}
}

// LoginPage はログインフォームを返す。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.templates.Render(w, http.StatusOK, pageLogin, newPageData(r, "ログイン"))
}

// Login はOTPの発行またはOTPによるログインを処理する。
// POST /login
// generate_otpが送信された場合はOTPを発行して画面に表示する（デモ）。
// do_loginが送信された場合はOTPを検証し、セッションを発行してリダイレクトする。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	data := newPageData(r, "ログイン")
	username := strings.TrimSpace(r.PostForm.Get(fieldLogin))
	data.Username = username

	switch {
	case r.PostForm.Has(fieldGenerateOTP):
		issued, err := h.service.IssueOTP(r.Context(), username)
		if err != nil {
			h.renderFormError(w, r, pageLogin, data, err)
			return
		}
		data.Username = issued.Username
		data.OTPDemo = issued.Code
		data.OTPExpiresAt = issued.ExpiresAt.Format(time.DateTime)
		data.Info = "ワンタイムパスワードを発行しました。入力してログインしてください。"
		h.templates.Render(w, http.StatusOK, pageLogin, data)

	case r.PostForm.Has(fieldDoLogin):
		code := strings.TrimSpace(r.PostForm.Get(fieldOTP))
		result, err := h.service.VerifyOTP(r.Context(), username, code)
		if err != nil {
			h.renderFormError(w, r, pageLogin, data, err)
			return
		}
		h.setSessionCookie(w, result.Session)
		http.Redirect(w, r, result.RedirectPath(), http.StatusFound)

	default:
		h.templates.Render(w, http.StatusOK, pageLogin, data)
	}
}

// SetPasswordPage はパスワード設定フォームを返す。
// GET /set-password
func (h *AuthHandler) SetPasswordPage(w http.ResponseWriter, r *http.Request) {
	data, ok := h.setPasswordData(w, r)
	if !ok {
		return
	}
	h.templates.Render(w, http.StatusOK, pageSetPassword, data)
}

// SetPassword は恒久パスワードを設定し、セッションを再発行してダッシュボードへ遷移する。
// POST /set-password
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	data, ok := h.setPasswordData(w, r)
	if !ok {
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	sessionID := middleware.SessionIDFromContext(r.Context())

	session, err := h.service.SetPassword(r.Context(), userID, sessionID,
		r.PostFormValue(fieldPassword1), r.PostFormValue(fieldPassword2))
	if err != nil {
		h.renderFormError(w, r, pageSetPassword, data, err)
		return
	}

	h.setSessionCookie(w, session)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout はセッションを破棄してトップページへリダイレクトする。
// セッションの有無にかかわらず常に成功する。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// setPasswordData はパスワード設定画面の共通データを読み込む。
// 読み込みに失敗した場合はレスポンスを書き込み、falseを返す。
func (h *AuthHandler) setPasswordData(w http.ResponseWriter, r *http.Request) (*pageData, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil, false
	}

	account, err := h.service.CurrentAccount(r.Context(), userID)
	if model.HasCode(err, model.ErrCodeUserNotFound) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil, false
	}
	if err != nil {
		slog.Error("failed to load account",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.templates.RenderError(w, r)
		return nil, false
	}

	data := newPageData(r, "パスワード設定")
	data.ClientID = account.Profile.ClientID
	return data, true
}

// renderFormError は入力エラーをフォームにインライン表示する。
// 入力エラー以外はログに記録し、汎用エラーページを返す。
func (h *AuthHandler) renderFormError(w http.ResponseWriter, r *http.Request, page string, data *pageData, err error) {
	if apiErr, ok := asValidationError(err); ok {
		data.Error = apiErr
		h.templates.Render(w, http.StatusOK, page, data)
		return
	}

	slog.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	h.templates.RenderError(w, r)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
