package repository

import (
	"context"

	"orderhub/internal/domain/model"
)

// 顧客の取得を約束（コアからは読み取りのみ）
type CustomerRepository interface {
	// IDから顧客を1件取得する。無ければErrNotFound
	FindByID(ctx context.Context, customerID string) (model.Customer, error)
	// 全件取得
	List(ctx context.Context) ([]model.Customer, error)
	// 中身を丸ごと入れ替える（インポート用）
	ReplaceAll(ctx context.Context, customers []model.Customer) error
}
