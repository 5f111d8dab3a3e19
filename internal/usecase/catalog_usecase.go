package usecase

import (
	"context"
	"errors"
	"fmt"

	"orderhub/internal/domain/model"
	repo "orderhub/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 顧客・商品の参照と、商品価格の更新
type CatalogUsecase struct {
	tx     repo.TransactionManager
	logger *zap.Logger
}

// DI
func NewCatalogUsecase(tx repo.TransactionManager, logger *zap.Logger) *CatalogUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogUsecase{tx: tx, logger: logger}
}

func (u *CatalogUsecase) GetCustomer(ctx context.Context, customerID string) (model.Customer, error) {
	var out model.Customer
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Customers().FindByID(ctx, customerID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewAppError(KindCustomerNotFound, fmt.Sprintf("customer %s not found", customerID))
		}
		if err != nil {
			return storageFailure(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return model.Customer{}, storageFailure(err)
	}
	return out, nil
}

func (u *CatalogUsecase) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var outs []model.Customer
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		items, err := r.Customers().List(ctx)
		if err != nil {
			return storageFailure(err)
		}
		outs = items
		return nil
	})
	if err != nil {
		return []model.Customer{}, storageFailure(err)
	}
	return outs, nil
}

func (u *CatalogUsecase) GetProduct(ctx context.Context, productID string) (model.Product, error) {
	var out model.Product
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewAppError(KindProductNotFound, fmt.Sprintf("product %s not found", productID))
		}
		if err != nil {
			return storageFailure(err)
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, storageFailure(err)
	}
	return out, nil
}

func (u *CatalogUsecase) ListProducts(ctx context.Context) ([]model.Product, error) {
	var outs []model.Product
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		items, err := r.Products().List(ctx)
		if err != nil {
			return storageFailure(err)
		}
		outs = items
		return nil
	})
	if err != nil {
		return []model.Product{}, storageFailure(err)
	}
	return outs, nil
}

// 現在価格だけ変える。既存注文のpriceAtPurchaseとtotalAmountはそのまま
func (u *CatalogUsecase) UpdateProductPrice(ctx context.Context, productID string, price decimal.Decimal) (model.Product, error) {
	if price.IsNegative() {
		return model.Product{}, NewAppError(KindInvalidInput, "price must be >= 0")
	}
	if !model.ValidPriceScale(price) {
		return model.Product{}, NewAppError(KindInvalidInput, "price must have at most 2 decimal places")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().UpdatePrice(ctx, productID, price)
		if errors.Is(err, repo.ErrNotFound) {
			return NewAppError(KindProductNotFound, fmt.Sprintf("product %s not found", productID))
		}
		if err != nil {
			return storageFailure(err)
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, storageFailure(err)
	}

	u.logger.Info("product price updated",
		zap.String("product_id", productID),
		zap.String("price", price.StringFixed(2)))
	return out, nil
}
