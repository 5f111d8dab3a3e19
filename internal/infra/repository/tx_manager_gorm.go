package repository

import (
	"context"
	"database/sql"

	repo "orderhub/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	customers repo.CustomerRepository
	products  repo.ProductRepository
	inventory repo.InventoryRepository
	orders    repo.OrderRepository
}

func (r *txReposGorm) Customers() repo.CustomerRepository  { return r.customers }
func (r *txReposGorm) Products() repo.ProductRepository    { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository { return r.inventory }
func (r *txReposGorm) Orders() repo.OrderRepository        { return r.orders }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func newTxRepos(tx *gorm.DB) *txReposGorm {
	//repoはtxを持ったDBで作り直す
	return &txReposGorm{
		customers: NewCustomerGormRepository(tx),
		products:  NewProductGormRepository(tx),
		inventory: NewInventoryGormRepository(tx),
		orders:    NewOrderGormRepository(tx),
	}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newTxRepos(tx))
	})
}

// 集計用：REPEATABLE READ の読み取り専用トランザクション
func (tm *TxManagerGorm) WithinReadOnlyTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newTxRepos(tx))
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}
