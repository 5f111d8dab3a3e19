package usecase_test

import (
	"context"
	"testing"
	"time"

	"orderhub/internal/analytics"
	"orderhub/internal/domain/model"
	"orderhub/internal/infra/memory"
	"orderhub/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(d int) time.Time {
	return time.Date(2024, 1, d, 10, 0, 0, 0, time.UTC)
}

func histOrder(id, customerID string, d int, status model.OrderStatus, items ...model.OrderItem) model.Order {
	return model.Order{
		ID:          id,
		CustomerID:  customerID,
		Items:       items,
		TotalAmount: model.SumLineTotals(items),
		OrderDate:   at(d),
		Status:      status,
	}
}

func histItem(productID string, qty int64, price string) model.OrderItem {
	return model.OrderItem{ProductID: productID, Quantity: qty, PriceAtPurchase: dec(price)}
}

func newAnalyticsFixture(t *testing.T) (*usecase.AnalyticsUsecase, *recordingMetrics) {
	t.Helper()
	s := memory.NewStore()
	seed(t, s,
		[]model.Customer{
			{ID: "c1", Name: "Alice", Email: "alice@example.com"},
			{ID: "c2", Name: "Bob", Email: "bob@example.com"},
			{ID: "c3", Name: "Carol", Email: "carol@example.com"},
		},
		[]model.Product{
			{ID: "A", Name: "Alpha", Category: "books", Price: dec("1"), Stock: 10},
			{ID: "B", Name: "Beta", Category: "games", Price: dec("1"), Stock: 10},
			{ID: "C", Name: "Gamma", Category: "books", Price: dec("1"), Stock: 10},
		},
		[]model.Order{
			histOrder("o1", "c1", 1, model.OrderStatusCompleted, histItem("A", 1, "10")),
			histOrder("o2", "c1", 2, model.OrderStatusPending, histItem("A", 4, "5"), histItem("B", 3, "0")),
			histOrder("o3", "c1", 3, model.OrderStatusCompleted, histItem("C", 3, "10")),
			histOrder("o4", "c2", 20, model.OrderStatusCancelled, histItem("B", 1, "7")),
		},
	)
	m := newRecordingMetrics()
	return usecase.NewAnalyticsUsecase(s, m, nil), m
}

func TestAnalyticsUsecase_CustomerSpending(t *testing.T) {
	uc, m := newAnalyticsFixture(t)

	s, err := uc.CustomerSpending(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, s)

	assertDec(t, "60", s.TotalSpent)
	assert.Equal(t, 3, s.OrderCount)
	assertDec(t, "20", s.AverageOrderValue)
	assert.True(t, at(3).Equal(s.LastOrderDate))
	assert.Equal(t, []string{"customer_spending"}, m.queries)
}

func TestAnalyticsUsecase_CustomerSpending_NoOrdersIsNil(t *testing.T) {
	uc, _ := newAnalyticsFixture(t)

	s, err := uc.CustomerSpending(context.Background(), "c3")
	assert.NoError(t, err)
	assert.Nil(t, s)

	s, err = uc.CustomerSpending(context.Background(), "unknown")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestAnalyticsUsecase_CustomerSpending_BlankID(t *testing.T) {
	uc, _ := newAnalyticsFixture(t)

	_, err := uc.CustomerSpending(context.Background(), " ")
	assertKind(t, err, usecase.KindInvalidInput)
}

func TestAnalyticsUsecase_TopSellingProducts(t *testing.T) {
	uc, _ := newAnalyticsFixture(t)

	got, err := uc.TopSellingProducts(context.Background(), 2)
	require.NoError(t, err)

	// A=5, B=4(取消含む), C=3
	assert.Equal(t, []analytics.TopProduct{
		{ProductID: "A", Name: "Alpha", TotalSold: 5},
		{ProductID: "B", Name: "Beta", TotalSold: 4},
	}, got)
}

func TestAnalyticsUsecase_TopSellingProducts_Limits(t *testing.T) {
	uc, _ := newAnalyticsFixture(t)

	got, err := uc.TopSellingProducts(context.Background(), 0)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = uc.TopSellingProducts(context.Background(), 50)
	assert.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = uc.TopSellingProducts(context.Background(), -1)
	assertKind(t, err, usecase.KindInvalidInput)
}

func TestAnalyticsUsecase_SalesAnalytics(t *testing.T) {
	uc, _ := newAnalyticsFixture(t)

	got, err := uc.SalesAnalytics(context.Background(), at(1), at(3))
	require.NoError(t, err)

	assertDec(t, "60", got.TotalRevenue)
	assert.Equal(t, 2, got.CompletedOrders)
	require.Len(t, got.CategoryBreakdown, 2)
	assert.Equal(t, "books", got.CategoryBreakdown[0].Category)
	assertDec(t, "60", got.CategoryBreakdown[0].Revenue)
	assert.Equal(t, "games", got.CategoryBreakdown[1].Category)
	assertDec(t, "0", got.CategoryBreakdown[1].Revenue)
}

func TestAnalyticsUsecase_SalesAnalytics_EmptyRange(t *testing.T) {
	uc, _ := newAnalyticsFixture(t)

	got, err := uc.SalesAnalytics(context.Background(), at(10), at(15))
	require.NoError(t, err)

	assertDec(t, "0", got.TotalRevenue)
	assert.Equal(t, 0, got.CompletedOrders)
	assert.Empty(t, got.CategoryBreakdown)
}

func TestAnalyticsUsecase_SalesAnalytics_StartAfterEnd(t *testing.T) {
	uc, _ := newAnalyticsFixture(t)

	_, err := uc.SalesAnalytics(context.Background(), at(5), at(1))
	assertKind(t, err, usecase.KindInvalidInput)
}

// 値上げ後の注文だけが新しい価格でカテゴリ売上に入る
func TestAnalyticsUsecase_SalesAnalytics_PriceChangeAppliesToNewOrdersOnly(t *testing.T) {
	f := newOrderFixture(t)
	catalog := usecase.NewCatalogUsecase(f.store, nil)
	uc := usecase.NewAnalyticsUsecase(f.store, nil, nil)
	ctx := context.Background()

	first, err := f.uc.PlaceOrder(ctx, usecase.PlaceOrderInput{CustomerID: "c1", Lines: lines("p1", 2)})
	require.NoError(t, err)

	_, err = catalog.UpdateProductPrice(ctx, "p1", dec("99.99"))
	require.NoError(t, err)

	second, err := f.uc.PlaceOrder(ctx, usecase.PlaceOrderInput{CustomerID: "c1", Lines: lines("p1", 1)})
	require.NoError(t, err)
	assertDec(t, "99.99", second.TotalAmount)

	got, err := uc.SalesAnalytics(ctx, testNow, testNow)
	require.NoError(t, err)
	assertDec(t, "119.99", got.TotalRevenue)
	require.Len(t, got.CategoryBreakdown, 1)
	assert.Equal(t, "electronics", got.CategoryBreakdown[0].Category)
	assertDec(t, "119.99", got.CategoryBreakdown[0].Revenue)

	reloaded, err := f.uc.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	assertDec(t, "20.00", reloaded.TotalAmount)
	assertDec(t, "10.00", reloaded.Items[0].PriceAtPurchase)
}
