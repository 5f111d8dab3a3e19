package repository

import (
	"context"
	"errors"

	"orderhub/internal/domain/model"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// 一意制約違反（IDやemailの重複）
var ErrConflict = errors.New("conflict")

// 商品の永続化（保存・取得）だけを約束。
// 在庫の増減はInventoryRepositoryが持つ。
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (model.Product, error)
	// 見つからないIDは結果に含めない（エラーにしない）
	FindByIDs(ctx context.Context, productIDs []string) ([]model.Product, error)
	List(ctx context.Context) ([]model.Product, error)

	// 現在価格の更新。既存注文のpriceAtPurchaseには影響しない
	UpdatePrice(ctx context.Context, productID string, price decimal.Decimal) (model.Product, error)

	// インポート用
	ReplaceAll(ctx context.Context, products []model.Product) error
}
