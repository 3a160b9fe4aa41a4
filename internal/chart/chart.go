// Package chart はBTC価格履歴をチャート描画用の系列に整形する。
package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/btcdash/internal/repository"
	"github.com/hitoshi/btcdash/internal/security"
)

// dateLayout は系列に含める日付の書式。
const dateLayout = time.DateOnly

// Series はチャート描画用の並列配列。
// Dates[i]とPrices[i]が同じ日の値を表す。データが無い場合も空スライス（nilではない）。
type Series struct {
	Dates  []string      `json:"dates"`
	Prices []float64     `json:"prices"`
	Latest *PointSummary `json:"-"`
}

// PointSummary は系列の最新点をページ見出し用に要約する。
type PointSummary struct {
	Date   string
	Price  string // 小数点以下2桁の表示用文字列
	Source string // タグを除去済み
}

// Service は価格系列の取得と整形を行う。
type Service struct {
	priceRepo repository.PriceRepository
	sanitizer security.Sanitizer
	years     int
}

// NewService はServiceを生成する。yearsは遡る年数（1年=365日）。
func NewService(priceRepo repository.PriceRepository, sanitizer security.Sanitizer, years int) *Service {
	if years <= 0 {
		years = 5
	}
	return &Service{
		priceRepo: priceRepo,
		sanitizer: sanitizer,
		years:     years,
	}
}

// Since はnowの日付からyears×365日遡った日付（UTCの0時）を返す。
func (s *Service) Since(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -365*s.years)
}

// Series は下限日以降の価格を日付昇順の系列として返す。
func (s *Service) Series(ctx context.Context, now time.Time) (*Series, error) {
	points, err := s.priceRepo.ListSince(ctx, s.Since(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}

	series := &Series{
		Dates:  make([]string, 0, len(points)),
		Prices: make([]float64, 0, len(points)),
	}
	for _, p := range points {
		f, _ := p.Price.Float64()
		series.Dates = append(series.Dates, p.Date.Format(dateLayout))
		series.Prices = append(series.Prices, f)
	}

	if n := len(points); n > 0 {
		last := points[n-1]
		summary := &PointSummary{
			Date:  last.Date.Format(dateLayout),
			Price: last.Price.StringFixed(2),
		}
		if last.Source != nil {
			summary.Source = s.sanitizer.PlainText(*last.Source)
		}
		series.Latest = summary
	}

	return series, nil
}
