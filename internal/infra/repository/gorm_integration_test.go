package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"orderhub/internal/domain/model"
	"orderhub/internal/infra/db"
	infraRepo "orderhub/internal/infra/repository"
	repo "orderhub/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TEST_DATABASE_URL が無ければ skip（中身は毎回入れ替える）
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func seedDB(t *testing.T, tm *infraRepo.TxManagerGorm) {
	t.Helper()
	ctx := context.Background()
	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().ReplaceAll(ctx, nil); err != nil {
			return err
		}
		if err := r.Customers().ReplaceAll(ctx, []model.Customer{
			{ID: "c1", Name: "Alice", Email: "alice@example.com"},
		}); err != nil {
			return err
		}
		return r.Products().ReplaceAll(ctx, []model.Product{
			{ID: "p1", Name: "Mug", Category: "kitchen", Price: decimal.RequireFromString("8.50"), Stock: 5},
			{ID: "p2", Name: "Pen", Category: "stationery", Price: decimal.RequireFromString("1.20"), Stock: 1},
		})
	})
	require.NoError(t, err)
}

func TestGorm_DecreaseStockIfEnough_ConcurrentNeverNegative(t *testing.T) {
	gdb := openTestDB(t)
	tm := infraRepo.NewTxManagerGorm(gdb)
	seedDB(t, tm)
	ctx := context.Background()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
				done, err := r.Inventory().DecreaseStockIfEnough(ctx, "p1", 1)
				if err != nil {
					return err
				}
				if done {
					mu.Lock()
					ok++
					mu.Unlock()
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	p, err := infraRepo.NewProductGormRepository(gdb).FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Stock)
}

func TestGorm_OrderRoundTripAndQuery(t *testing.T) {
	gdb := openTestDB(t)
	tm := infraRepo.NewTxManagerGorm(gdb)
	seedDB(t, tm)
	ctx := context.Background()
	orderDate := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	items := []model.OrderItem{
		{Position: 0, ProductID: "p2", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("1.20")},
		{Position: 1, ProductID: "p1", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("8.50")},
	}
	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Orders().Create(ctx, model.Order{
			ID:          "o1",
			CustomerID:  "c1",
			Items:       items,
			TotalAmount: model.SumLineTotals(items),
			OrderDate:   orderDate,
			Status:      model.OrderStatusPending,
		})
		return err
	})
	require.NoError(t, err)

	err = tm.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, "o1")
		require.NoError(t, err)
		require.Len(t, o.Items, 2)
		assert.Equal(t, "p2", o.Items[0].ProductID)
		assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("18.20")))

		from, to := orderDate, orderDate
		got, err := r.Orders().Query(ctx, repo.OrderFilter{From: &from, To: &to})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		// 読み取り専用トランザクションでは書けない
		_, err = r.Inventory().DecreaseStockIfEnough(ctx, "p1", 1)
		return err
	})
	assert.Error(t, err)

	updated, err := infraRepo.NewOrderGormRepository(gdb).UpdateStatus(ctx, "o1", model.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, updated.Status)

	_, err = infraRepo.NewOrderGormRepository(gdb).UpdateStatus(ctx, "missing", model.OrderStatusCompleted)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestGorm_ReplaceAll_DuplicateEmailIsConflict(t *testing.T) {
	gdb := openTestDB(t)
	tm := infraRepo.NewTxManagerGorm(gdb)
	seedDB(t, tm)
	ctx := context.Background()

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Customers().ReplaceAll(ctx, []model.Customer{
			{ID: "x1", Name: "X", Email: "dup@example.com"},
			{ID: "x2", Name: "Y", Email: "dup@example.com"},
		})
	})
	assert.ErrorIs(t, err, repo.ErrConflict)

	// rollbackされて元の顧客が残る
	c, err := infraRepo.NewCustomerGormRepository(gdb).FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Name)
}
