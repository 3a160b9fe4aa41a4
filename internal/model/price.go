package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint はbtc_priceテーブルの1行を表す。
// 外部で投入されるデータで、本システムからは読み取り専用。
type PricePoint struct {
	Date   time.Time
	Price  decimal.Decimal // PLN建て、小数点以下2桁
	Volume *int64
	Source *string
}
