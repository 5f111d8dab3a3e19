package events

import (
	"time"

	"orderhub/internal/domain/model"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status_changed"
)

type OrderLine struct {
	ProductID       string          `json:"productId"`
	Quantity        int64           `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

type OrderPlaced struct {
	EventID     string          `json:"eventId"`
	OrderID     string          `json:"orderId"`
	CustomerID  string          `json:"customerId"`
	Lines       []OrderLine     `json:"lines"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OrderDate   time.Time       `json:"orderDate"`
	Timestamp   time.Time       `json:"timestamp"`
}

type OrderStatusChanged struct {
	EventID   string            `json:"eventId"`
	OrderID   string            `json:"orderId"`
	From      model.OrderStatus `json:"from"`
	To        model.OrderStatus `json:"to"`
	Timestamp time.Time         `json:"timestamp"`
}

func newOrderPlaced(eventID string, o model.Order, now time.Time) OrderPlaced {
	lines := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, OrderLine{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
		})
	}
	return OrderPlaced{
		EventID:     eventID,
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		Lines:       lines,
		TotalAmount: o.TotalAmount,
		OrderDate:   o.OrderDate,
		Timestamp:   now,
	}
}
