package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orderhub/internal/analytics"
	repo "orderhub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AnalyticsUsecase は読み取り専用。注文と商品を同じスナップショットから読んで集計する
type AnalyticsUsecase struct {
	tx      repo.TransactionManager
	metrics Metrics
	logger  *zap.Logger
}

func NewAnalyticsUsecase(tx repo.TransactionManager, metrics Metrics, logger *zap.Logger) *AnalyticsUsecase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsUsecase{tx: tx, metrics: metrics, logger: logger}
}

// 注文が無い顧客は nil, nil
func (u *AnalyticsUsecase) CustomerSpending(ctx context.Context, customerID string) (*analytics.Spending, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, NewAppError(KindInvalidInput, "customer id required")
	}

	ctx, span := tracer.Start(ctx, "AnalyticsUsecase.CustomerSpending", trace.WithAttributes(
		attribute.String("customer.id", customerID),
	))
	defer span.End()
	defer u.observe("customer_spending", time.Now())

	var out *analytics.Spending
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().Query(ctx, repo.OrderFilter{CustomerID: &customerID})
		if err != nil {
			return storageFailure(err)
		}
		if s, ok := analytics.CustomerSpending(customerID, orders); ok {
			out = &s
		}
		return nil
	})
	if err != nil {
		return nil, u.fail("customer_spending", err)
	}
	return out, nil
}

func (u *AnalyticsUsecase) TopSellingProducts(ctx context.Context, limit int) ([]analytics.TopProduct, error) {
	if limit < 0 {
		return []analytics.TopProduct{}, NewAppError(KindInvalidInput, "limit must be >= 0")
	}
	if limit == 0 {
		return []analytics.TopProduct{}, nil
	}

	ctx, span := tracer.Start(ctx, "AnalyticsUsecase.TopSellingProducts", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()
	defer u.observe("top_selling_products", time.Now())

	out := []analytics.TopProduct{}
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().Query(ctx, repo.OrderFilter{})
		if err != nil {
			return storageFailure(err)
		}
		products, err := r.Products().FindByIDs(ctx, analytics.ProductIDs(orders))
		if err != nil {
			return storageFailure(err)
		}
		out = analytics.TopSelling(orders, analytics.IndexProducts(products), limit)
		return nil
	})
	if err != nil {
		return []analytics.TopProduct{}, u.fail("top_selling_products", err)
	}
	return out, nil
}

// [start, end] は両端を含む
func (u *AnalyticsUsecase) SalesAnalytics(ctx context.Context, start, end time.Time) (analytics.SalesAnalytics, error) {
	if start.After(end) {
		return analytics.SalesAnalytics{}, NewAppError(KindInvalidInput, fmt.Sprintf("startDate %s is after endDate %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}

	ctx, span := tracer.Start(ctx, "AnalyticsUsecase.SalesAnalytics", trace.WithAttributes(
		attribute.String("range.start", start.Format(time.RFC3339)),
		attribute.String("range.end", end.Format(time.RFC3339)),
	))
	defer span.End()
	defer u.observe("sales_analytics", time.Now())

	var out analytics.SalesAnalytics
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().Query(ctx, repo.OrderFilter{From: &start, To: &end})
		if err != nil {
			return storageFailure(err)
		}
		products, err := r.Products().FindByIDs(ctx, analytics.ProductIDs(orders))
		if err != nil {
			return storageFailure(err)
		}
		out = analytics.Sales(orders, analytics.IndexProducts(products), start, end)
		return nil
	})
	if err != nil {
		return analytics.SalesAnalytics{}, u.fail("sales_analytics", err)
	}
	return out, nil
}

func (u *AnalyticsUsecase) observe(query string, started time.Time) {
	u.metrics.AnalyticsQuery(query, time.Since(started))
}

func (u *AnalyticsUsecase) fail(query string, err error) error {
	err = storageFailure(err)
	u.logger.Error("analytics query failed", zap.String("query", query), zap.Error(err))
	return err
}
