package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/btcdash/internal/auth"
	"github.com/hitoshi/btcdash/internal/middleware"
	"github.com/hitoshi/btcdash/internal/model"
)

// AccountReader は認証済みユーザーのアカウント情報を取得する。
type AccountReader interface {
	CurrentAccount(ctx context.Context, userID string) (*auth.Account, error)
}

// StaticPages は埋め込み静的ページのHTMLを返す。
type StaticPages interface {
	Page(name string) (template.HTML, error)
}

// PageHandler はホーム・ダッシュボード・静的ページのハンドラー。
type PageHandler struct {
	accounts  AccountReader
	pages     StaticPages
	templates *Templates
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(accounts AccountReader, pages StaticPages, templates *Templates) *PageHandler {
	return &PageHandler{
		accounts:  accounts,
		pages:     pages,
		templates: templates,
	}
}

// newPageData はリクエスト共通の値を設定したpageDataを返す。
func newPageData(r *http.Request, title string) *pageData {
	_, err := middleware.UserIDFromContext(r.Context())
	return &pageData{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		LoggedIn:  err == nil,
	}
}

// Home は公開トップページを返す。
// GET|POST /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.templates.Render(w, http.StatusOK, pageHome, newPageData(r, "ホーム"))
}

// Dashboard はログインIDとクライアントIDを表示する。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	account, err := h.accounts.CurrentAccount(r.Context(), userID)
	if model.HasCode(err, model.ErrCodeUserNotFound) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil {
		slog.Error("failed to load account",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.templates.RenderError(w, r)
		return
	}

	data := newPageData(r, "ダッシュボード")
	data.Username = account.User.Username
	data.ClientID = account.Profile.ClientID
	h.templates.Render(w, http.StatusOK, pageDashboard, data)
}

// Insurance は埋め込みMarkdownから生成した保険ページを返す。
// GET /insurance
func (h *PageHandler) Insurance(w http.ResponseWriter, r *http.Request) {
	content, err := h.pages.Page("insurance")
	if err != nil {
		slog.Error("failed to render insurance page", slog.String("error", err.Error()))
		h.templates.RenderError(w, r)
		return
	}

	data := newPageData(r, "暗号資産保険")
	data.Content = content
	h.templates.Render(w, http.StatusOK, pageInsurance, data)
}
