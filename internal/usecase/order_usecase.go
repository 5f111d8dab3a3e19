package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"orderhub/internal/domain/model"
	repo "orderhub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	validator OrderValidator
	ids       IDGenerator
	clock     Clock
	events    EventPublisher
	metrics   Metrics
	logger    *zap.Logger
}

// eventsとmetricsはnilなら何もしない実装を使う
func NewOrderUsecase(
	tx repo.TransactionManager,
	validator OrderValidator,
	ids IDGenerator,
	clock Clock,
	events EventPublisher,
	metrics Metrics,
	logger *zap.Logger,
) *OrderUsecase {
	if events == nil {
		events = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderUsecase{
		tx:        tx,
		validator: validator,
		ids:       ids,
		clock:     clock,
		events:    events,
		metrics:   metrics,
		logger:    logger,
	}
}

type OrderLineInput struct {
	ProductID string
	Quantity  int64
}

type PlaceOrderInput struct {
	CustomerID string
	Lines      []OrderLineInput
}

// PlaceOrder は在庫を確保して価格を凍結し、pendingの注文を作る。
// 途中で失敗したら在庫も注文も何も残らない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderUsecase.PlaceOrder", trace.WithAttributes(
		attribute.String("customer.id", in.CustomerID),
		attribute.Int("order.lines", len(in.Lines)),
	))
	defer span.End()

	order, err := u.placeOrder(ctx, in)
	u.metrics.OrderPlaced(resultLabel(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, resultLabel(err))
		u.logger.Warn("place order failed",
			zap.String("customer_id", in.CustomerID),
			zap.Int("lines", len(in.Lines)),
			zap.Error(err))
		return model.Order{}, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	u.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)))

	// commit後なので失敗してもログだけ
	if err := u.events.PublishOrderPlaced(ctx, order); err != nil {
		u.logger.Error("publish order placed failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

func (u *OrderUsecase) placeOrder(ctx context.Context, in PlaceOrderInput) (model.Order, error) {
	if err := u.validator.ValidatePlaceOrder(in); err != nil {
		return model.Order{}, NewAppError(KindInvalidInput, err.Error())
	}

	var created model.Order

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//顧客の存在確認
		if _, err := r.Customers().FindByID(ctx, in.CustomerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewAppError(KindCustomerNotFound, fmt.Sprintf("customer %s not found", in.CustomerID))
			}
			return storageFailure(err)
		}

		//先に全行を検証する（同じ商品が複数行にあれば合計数量で見る）
		items := make([]model.OrderItem, 0, len(in.Lines))
		requested := make(map[string]int64, len(in.Lines))

		for i, line := range in.Lines {
			p, err := r.Products().FindByID(ctx, line.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewAppError(KindProductNotFound, fmt.Sprintf("product %s not found", line.ProductID))
			}
			if err != nil {
				return storageFailure(err)
			}

			requested[p.ID] += line.Quantity
			if p.Stock < requested[p.ID] {
				return NewAppError(KindInsufficientStock, fmt.Sprintf("insufficient stock for product %s", p.Name))
			}

			//スナップショット（今の価格を凍結）
			items = append(items, model.OrderItem{
				Position:        i,
				ProductID:       p.ID,
				Quantity:        line.Quantity,
				PriceAtPurchase: p.Price,
			})
		}

		//在庫減算は商品ごとに合計してID昇順で行う（行ロックの取得順を揃える）
		//検証後に他の注文に取られていたら false → 全体をrollback
		for _, productID := range slices.Sorted(maps.Keys(requested)) {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, productID, requested[productID])
			if err != nil {
				return storageFailure(err)
			}
			if !ok {
				return NewAppError(KindInsufficientStock, fmt.Sprintf("insufficient stock for product %s", productID))
			}
		}

		// 注文作成
		now := u.clock.Now()
		order, err := r.Orders().Create(ctx, model.Order{
			ID:          u.ids.NewID(),
			CustomerID:  in.CustomerID,
			Items:       items,
			TotalAmount: model.SumLineTotals(items),
			OrderDate:   now,
			Status:      model.OrderStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return storageFailure(err)
		}
		created = order
		return nil
	})
	if err != nil {
		return model.Order{}, storageFailure(err)
	}
	return created, nil
}

// UpdateOrderStatus は4種類のどれかなら遷移元に関係なく上書きする
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, orderID string, status string) (model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderUsecase.UpdateOrderStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", status),
	))
	defer span.End()

	newStatus, ok := model.ParseOrderStatus(status)
	if !ok {
		err := NewAppError(KindInvalidStatus, fmt.Sprintf("invalid order status %q", status))
		span.SetStatus(codes.Error, string(KindInvalidStatus))
		return model.Order{}, err
	}

	var (
		updated  model.Order
		previous model.OrderStatus
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewAppError(KindOrderNotFound, fmt.Sprintf("order %s not found", orderID))
		}
		if err != nil {
			return storageFailure(err)
		}
		previous = o.Status

		// ステータス更新
		updated, err = r.Orders().UpdateStatus(ctx, orderID, newStatus)
		if errors.Is(err, repo.ErrNotFound) {
			return NewAppError(KindOrderNotFound, fmt.Sprintf("order %s not found", orderID))
		}
		if err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		err = storageFailure(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, resultLabel(err))
		return model.Order{}, err
	}

	u.metrics.OrderStatusUpdated(newStatus)
	u.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(newStatus)))

	if err := u.events.PublishOrderStatusChanged(ctx, updated, previous); err != nil {
		u.logger.Error("publish order status changed failed", zap.String("order_id", orderID), zap.Error(err))
	}
	return updated, nil
}

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	var out model.Order
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewAppError(KindOrderNotFound, fmt.Sprintf("order %s not found", orderID))
		}
		if err != nil {
			return storageFailure(err)
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, storageFailure(err)
	}
	return out, nil
}

func (u *OrderUsecase) ListOrders(ctx context.Context) ([]model.Order, error) {
	return u.queryOrders(ctx, repo.OrderFilter{})
}

// 顧客の存在チェックはしない（いなければ空）
func (u *OrderUsecase) ListCustomerOrders(ctx context.Context, customerID string) ([]model.Order, error) {
	return u.queryOrders(ctx, repo.OrderFilter{CustomerID: &customerID})
}

func (u *OrderUsecase) queryOrders(ctx context.Context, f repo.OrderFilter) ([]model.Order, error) {
	var outs []model.Order
	err := u.tx.WithinReadOnlyTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().Query(ctx, f)
		if err != nil {
			return storageFailure(err)
		}
		outs = orders
		return nil
	})
	if err != nil {
		return []model.Order{}, storageFailure(err)
	}
	return outs, nil
}
