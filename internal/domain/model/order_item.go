package model

import "github.com/shopspring/decimal"

// 注文明細
// PriceAtPurchaseは注文時点の価格のスナップショット。後から再計算しない。
// Positionはリクエストで渡された行の順番。
type OrderItem struct {
	OrderID         string          `gorm:"type:varchar(64);primaryKey" json:"-"`
	Position        int             `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ProductID       string          `gorm:"type:varchar(64);not null;index" json:"productId"`
	Quantity        int64           `gorm:"not null;check:chk_order_items_quantity_positive,quantity >= 1" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"priceAtPurchase"`
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.PriceAtPurchase.Mul(decimal.NewFromInt(it.Quantity))
}
