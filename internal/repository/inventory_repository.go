package repository

import (
	"context"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算（チェックと減算は1ステップ）
	// 足りない・商品が無いときは false を返す
	DecreaseStockIfEnough(ctx context.Context, productID string, qty int64) (bool, error)
}
