package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/btcdash/internal/chart"
	"github.com/hitoshi/btcdash/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページテンプレート名
const (
	pageHome        = "home"
	pageLogin       = "login"
	pageSetPassword = "set_password"
	pageDashboard   = "dashboard"
	pageBitcoin     = "bitcoin"
	pageInsurance   = "insurance"
	pageError       = "error"
)

var pageNames = []string{
	pageHome, pageLogin, pageSetPassword, pageDashboard,
	pageBitcoin, pageInsurance, pageError,
}

// pageData はテンプレートに渡す値。ページごとに必要なフィールドのみ設定する。
type pageData struct {
	Title     string
	CSRFToken string
	LoggedIn  bool
	Error     *model.APIError
	Info      string

	// ログイン
	Username     string
	OTPDemo      string
	OTPExpiresAt string

	// アカウント
	ClientID string

	// チャート
	Series *chart.Series

	// 静的ページ
	Content template.HTML
}

// Templates はページごとにレイアウトと結合済みのテンプレートを保持する。
type Templates struct {
	pages map[string]*template.Template
}

// NewTemplates は埋め込みテンプレートを解析する。
func NewTemplates() (*Templates, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Templates{pages: pages}, nil
}

// MustTemplates はNewTemplatesのエラー時にpanicする版。
// 埋め込みテンプレートは起動時に確定するため、テストと初期化で使う。
func MustTemplates() *Templates {
	t, err := NewTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

// Render はページをバッファに描画してからレスポンスに書き込む。
// 描画に失敗した場合は500を返す。
func (t *Templates) Render(w http.ResponseWriter, status int, name string, data *pageData) {
	tmpl, ok := t.pages[name]
	if !ok {
		slog.Error("unknown template", slog.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RenderError は汎用エラーページを500で返す。
func (t *Templates) RenderError(w http.ResponseWriter, r *http.Request) {
	t.Render(w, http.StatusInternalServerError, pageError, newPageData(r, "エラー"))
}
