package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderhub/internal/domain/model"
	"orderhub/internal/handler"
	"orderhub/internal/infra/memory"
	repo "orderhub/internal/repository"
	"orderhub/internal/usecase"
	"orderhub/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.NewString() }

type clock struct{}

func (clock) Now() time.Time { return time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC) }

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	s := memory.NewStore()
	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		if err := r.Customers().ReplaceAll(context.Background(), []model.Customer{
			{ID: "c1", Name: "Alice", Email: "alice@example.com"},
		}); err != nil {
			return err
		}
		return r.Products().ReplaceAll(context.Background(), []model.Product{
			{ID: "p1", Name: "Mug", Category: "kitchen", Price: decimal.RequireFromString("8.00"), Stock: 2},
		})
	})
	require.NoError(t, err)

	e := echo.New()
	handler.NewOrderHandler(usecase.NewOrderUsecase(s, validator.NewOrderValidator(), uuidGen{}, clock{}, nil, nil, nil)).RegisterRoutes(e)
	handler.NewCatalogHandler(usecase.NewCatalogUsecase(s, nil)).RegisterRoutes(e)
	handler.NewAnalyticsHandler(usecase.NewAnalyticsUsecase(s, nil, nil)).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestOrders_PlaceAndFetch(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/orders", `{"customerId":"c1","products":[{"productId":"p1","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[model.Order](t, rec)
	assert.Equal(t, model.OrderStatusPending, created.Status)
	assert.True(t, created.TotalAmount.Equal(decimal.RequireFromString("16")))
	require.Len(t, created.Items, 1)
	assert.Equal(t, "p1", created.Items[0].ProductID)

	rec = do(e, http.MethodGet, "/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[model.Order](t, rec).ID)

	rec = do(e, http.MethodGet, "/customers/c1/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Order](t, rec), 1)

	rec = do(e, http.MethodGet, "/products/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decode[model.Product](t, rec).Stock)
}

func TestOrders_ErrorMapping(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"unknown customer", http.MethodPost, "/orders", `{"customerId":"zz","products":[{"productId":"p1","quantity":1}]}`, http.StatusNotFound, "CustomerNotFound"},
		{"unknown product", http.MethodPost, "/orders", `{"customerId":"c1","products":[{"productId":"zz","quantity":1}]}`, http.StatusNotFound, "ProductNotFound"},
		{"insufficient stock", http.MethodPost, "/orders", `{"customerId":"c1","products":[{"productId":"p1","quantity":3}]}`, http.StatusConflict, "InsufficientStock"},
		{"empty lines", http.MethodPost, "/orders", `{"customerId":"c1","products":[]}`, http.StatusBadRequest, "InvalidInput"},
		{"broken json", http.MethodPost, "/orders", `{"customerId":`, http.StatusBadRequest, "InvalidInput"},
		{"unknown order", http.MethodGet, "/orders/nope", "", http.StatusNotFound, "OrderNotFound"},
		{"status of unknown order", http.MethodPut, "/orders/nope/status", `{"status":"completed"}`, http.StatusNotFound, "OrderNotFound"},
		{"unknown customer lookup", http.MethodGet, "/customers/zz", "", http.StatusNotFound, "CustomerNotFound"},
		{"negative price", http.MethodPut, "/products/p1/price", `{"price":-1}`, http.StatusBadRequest, "InvalidInput"},
		{"sub-cent price", http.MethodPut, "/products/p1/price", `{"price":"9.999"}`, http.StatusBadRequest, "InvalidInput"},
		{"missing price", http.MethodPut, "/products/p1/price", `{}`, http.StatusBadRequest, "InvalidInput"},
		{"negative limit", http.MethodGet, "/analytics/top-products?limit=-1", "", http.StatusBadRequest, "InvalidInput"},
		{"bad limit", http.MethodGet, "/analytics/top-products?limit=ten", "", http.StatusBadRequest, "InvalidInput"},
		{"bad date", http.MethodGet, "/analytics/sales?startDate=yesterday&endDate=2024-01-01", "", http.StatusBadRequest, "InvalidInput"},
		{"missing date", http.MethodGet, "/analytics/sales?startDate=2024-01-01", "", http.StatusBadRequest, "InvalidInput"},
		{"reversed range", http.MethodGet, "/analytics/sales?startDate=2024-02-01&endDate=2024-01-01", "", http.StatusBadRequest, "InvalidInput"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantKind, decode[handler.ErrorResponse](t, rec).Error)
		})
	}
}

func TestOrders_UpdateStatus(t *testing.T) {
	e := newTestServer(t)
	created := decode[model.Order](t, do(e, http.MethodPost, "/orders", `{"customerId":"c1","products":[{"productId":"p1","quantity":1}]}`))

	rec := do(e, http.MethodPut, "/orders/"+created.ID+"/status", `{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidStatus", decode[handler.ErrorResponse](t, rec).Error)

	rec = do(e, http.MethodPut, "/orders/"+created.ID+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.OrderStatusCompleted, decode[model.Order](t, rec).Status)
}

func TestAnalytics_Endpoints(t *testing.T) {
	e := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/orders", `{"customerId":"c1","products":[{"productId":"p1","quantity":2}]}`).Code)

	rec := do(e, http.MethodGet, "/analytics/customers/c1/spending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var spending map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spending))
	assert.Equal(t, "16", spending["totalSpent"])
	assert.Equal(t, float64(1), spending["orderCount"])

	// 注文が無い顧客は null
	rec = do(e, http.MethodGet, "/analytics/customers/none/spending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = do(e, http.MethodGet, "/analytics/top-products?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"productId":"p1","name":"Mug","totalSold":2}]`, rec.Body.String())

	// 日付だけの endDate はその日の終わりまで含む
	rec = do(e, http.MethodGet, "/analytics/sales?startDate=2024-06-15&endDate=2024-06-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalRevenue":"16","completedOrders":0,"categoryBreakdown":[{"category":"kitchen","revenue":"16"}]}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/analytics/sales?startDate=2024-06-16T00:00:00Z&endDate=2024-06-30T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalRevenue":"0","completedOrders":0,"categoryBreakdown":[]}`, rec.Body.String())
}

func TestCatalog_UpdatePrice(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPut, "/products/p1/price", `{"price":"9.75"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.Product](t, rec).Price.Equal(decimal.RequireFromString("9.75")))

	rec = do(e, http.MethodGet, "/customers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Customer](t, rec), 1)
}
