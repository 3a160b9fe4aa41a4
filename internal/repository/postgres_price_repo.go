package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/btcdash/internal/model"
	"github.com/shopspring/decimal"
)

// PostgresPriceRepo はPostgreSQLを使用したBTC価格リポジトリ。
// btc_priceは外部で投入されるため、読み取り専用。
type PostgresPriceRepo struct {
	db *sql.DB
}

// NewPostgresPriceRepo はPostgresPriceRepoを生成する。
func NewPostgresPriceRepo(db *sql.DB) *PostgresPriceRepo {
	return &PostgresPriceRepo{db: db}
}

// ListSince はsince以降の価格を日付昇順で返す。
func (r *PostgresPriceRepo) ListSince(ctx context.Context, since time.Time) ([]model.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, price_pln, volume, source
		 FROM btc_price
		 WHERE date >= $1
		 ORDER BY date ASC`,
		since.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	points := make([]model.PricePoint, 0)
	for rows.Next() {
		var (
			p      model.PricePoint
			price  decimal.Decimal
			volume sql.NullInt64
			source sql.NullString
		)
		if err := rows.Scan(&p.Date, &price, &volume, &source); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		p.Price = price
		if volume.Valid {
			v := volume.Int64
			p.Volume = &v
		}
		if source.Valid {
			s := source.String
			p.Source = &s
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prices: %w", err)
	}

	return points, nil
}

// compile-time interface check
var _ PriceRepository = (*PostgresPriceRepo)(nil)
