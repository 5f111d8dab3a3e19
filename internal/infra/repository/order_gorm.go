package repository

import (
	"context"
	"errors"

	"orderhub/internal/domain/model"
	repo "orderhub/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 明細はposition順で読む
func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc")
	})
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	// Itemsはassociationとして一緒にINSERTされる
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return model.Order{}, translateWriteError(err)
	}
	return order, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := preloadItems(r.db.WithContext(ctx)).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (model.Order, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status)

	if res.Error != nil {
		return model.Order{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Order{}, repo.ErrNotFound
	}
	return r.FindByID(ctx, orderID)
}

func (r *OrderGormRepository) Query(ctx context.Context, f repo.OrderFilter) ([]model.Order, error) {
	q := preloadItems(r.db.WithContext(ctx)).Model(&model.Order{})

	//customer_id 絞り込み
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}

	//期間絞り込み（両端を含む）
	if f.From != nil {
		q = q.Where("order_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("order_date <= ?", *f.To)
	}

	var items []model.Order
	if err := q.Order("order_date asc").Order("id asc").Find(&items).Error; err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

func (r *OrderGormRepository) ReplaceAll(ctx context.Context, orders []model.Order) error {
	db := r.db.WithContext(ctx)
	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := all.Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	if err := all.Delete(&model.Order{}).Error; err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}
	if err := db.CreateInBatches(&orders, batchSize).Error; err != nil {
		return translateWriteError(err)
	}
	return nil
}
