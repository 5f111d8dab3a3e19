package usecase

import (
	"context"
	"time"

	"orderhub/internal/domain/model"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("orderhub/usecase")

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 注文の入力チェック（validatorパッケージが実装）
type OrderValidator interface {
	ValidatePlaceOrder(in PlaceOrderInput) error
}

// commit後に注文イベントを流す約束。失敗しても注文は取り消さない
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order model.Order) error
	PublishOrderStatusChanged(ctx context.Context, order model.Order, previous model.OrderStatus) error
}

// メトリクス記録の約束
type Metrics interface {
	OrderPlaced(result string)
	OrderStatusUpdated(status model.OrderStatus)
	AnalyticsQuery(query string, elapsed time.Duration)
}

type nopPublisher struct{}

func (nopPublisher) PublishOrderPlaced(context.Context, model.Order) error { return nil }
func (nopPublisher) PublishOrderStatusChanged(context.Context, model.Order, model.OrderStatus) error {
	return nil
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced(string)                   {}
func (nopMetrics) OrderStatusUpdated(model.OrderStatus) {}
func (nopMetrics) AnalyticsQuery(string, time.Duration) {}

// 結果ラベル（成功は ok、失敗はエラー種別）
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if ae, ok := AsAppError(err); ok {
		return string(ae.Kind)
	}
	return string(KindStorageFailure)
}
