package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品。Priceは現在価格（注文時の価格はOrderItem側に凍結する）。
// Stockは0未満にならない。
type Product struct {
	ID        string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Category  string          `gorm:"type:varchar(255);not null;index" json:"category"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock     int64           `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock >= 0" json:"stock"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// 金額は小数2桁まで（numeric(12,2) に丸められずに入る値）
const PriceScale = 2

func ValidPriceScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(PriceScale))
}
