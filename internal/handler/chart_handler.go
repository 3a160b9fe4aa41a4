package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/btcdash/internal/chart"
	"github.com/hitoshi/btcdash/internal/middleware"
)

// ChartServiceInterface はチャートハンドラーが必要とするサービスインターフェース。
type ChartServiceInterface interface {
	Series(ctx context.Context, now time.Time) (*chart.Series, error)
}

// ChartHandler はBTC価格チャートのHTTPハンドラー。
type ChartHandler struct {
	service   ChartServiceInterface
	templates *Templates
	now       func() time.Time
}

// NewChartHandler はChartHandlerを生成する。nowがnilの場合はtime.Nowを使う。
func NewChartHandler(service ChartServiceInterface, templates *Templates, now func() time.Time) *ChartHandler {
	if now == nil {
		now = time.Now
	}
	return &ChartHandler{
		service:   service,
		templates: templates,
		now:       now,
	}
}

// BitcoinPage は日付と価格の系列を埋め込んだチャートページを返す。
// GET /bitcoin
func (h *ChartHandler) BitcoinPage(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.Series(r.Context(), h.now())
	if err != nil {
		slog.Error("failed to load price series", slog.String("error", err.Error()))
		h.templates.RenderError(w, r)
		return
	}

	data := newPageData(r, "BTC価格")
	data.Series = series
	h.templates.Render(w, http.StatusOK, pageBitcoin, data)
}

// BitcoinJSON は日付と価格の系列をJSONで返す。
// GET /api/bitcoin
func (h *ChartHandler) BitcoinJSON(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.Series(r.Context(), h.now())
	if err != nil {
		slog.Error("failed to load price series", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(series)
}
