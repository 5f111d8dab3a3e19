package repository

import (
	"context"
	"errors"

	"orderhub/internal/domain/model"
	repo "orderhub/internal/repository"

	"gorm.io/gorm"
)

type CustomerGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

// IDで顧客を1件取得
func (r *CustomerGormRepository) FindByID(ctx context.Context, customerID string) (model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Where("id = ?", customerID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (r *CustomerGormRepository) List(ctx context.Context) ([]model.Customer, error) {
	var items []model.Customer
	if err := r.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return []model.Customer{}, err
	}
	return items, nil
}

// 全削除してから入れ直す
func (r *CustomerGormRepository) ReplaceAll(ctx context.Context, customers []model.Customer) error {
	db := r.db.WithContext(ctx)
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Customer{}).Error; err != nil {
		return err
	}
	if len(customers) == 0 {
		return nil
	}
	if err := db.CreateInBatches(&customers, batchSize).Error; err != nil {
		return translateWriteError(err)
	}
	return nil
}
