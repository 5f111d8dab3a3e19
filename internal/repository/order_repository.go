package repository

import (
	"context"
	"time"

	"orderhub/internal/domain/model"
)

// 注文の絞り込み条件。全部nilなら全件。
// From/Toは order_date に対して両端を含む。
type OrderFilter struct {
	CustomerID *string
	From       *time.Time
	To         *time.Time
}

type OrderRepository interface {
	// 明細ごと保存する
	Create(ctx context.Context, order model.Order) (model.Order, error)
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	// ステータスを上書きして更新後の注文を返す。無ければErrNotFound
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (model.Order, error)

	// 明細付きで order_date, id の昇順に返す
	Query(ctx context.Context, f OrderFilter) ([]model.Order, error)

	// インポート用
	ReplaceAll(ctx context.Context, orders []model.Order) error
}
