package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"orderhub/internal/domain/model"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter は *kafka.Writer のうち使う部分だけ（テストで差し替える）
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 1件の送信にかける上限。commit済みのレスポンスをbrokerで止めない
const DefaultPublishTimeout = 3 * time.Second

// KafkaPublisher は注文イベントをJSONで送る。キーは注文ID（同じ注文は同じパーティション）
type KafkaPublisher struct {
	placed  MessageWriter
	changed MessageWriter
	logger  *zap.Logger
	now     func() time.Time
	timeout time.Duration
}

type Option func(*KafkaPublisher)

func WithPublishTimeout(d time.Duration) Option {
	return func(p *KafkaPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewKafkaPublisher(brokers []string, logger *zap.Logger, opts ...Option) *KafkaPublisher {
	return NewPublisherWithWriters(newWriter(brokers, TopicOrderPlaced), newWriter(brokers, TopicOrderStatusChanged), logger, opts...)
}

func NewPublisherWithWriters(placed, changed MessageWriter, logger *zap.Logger, opts ...Option) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &KafkaPublisher{placed: placed, changed: changed, logger: logger, now: time.Now, timeout: DefaultPublishTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order model.Order) error {
	ev := newOrderPlaced(uuid.NewString(), order, p.now().UTC())
	return p.publish(ctx, p.placed, order.ID, ev)
}

func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order model.Order, previous model.OrderStatus) error {
	ev := OrderStatusChanged{
		EventID:   uuid.NewString(),
		OrderID:   order.ID,
		From:      previous,
		To:        order.Status,
		Timestamp: p.now().UTC(),
	}
	return p.publish(ctx, p.changed, order.ID, ev)
}

func (p *KafkaPublisher) publish(ctx context.Context, w MessageWriter, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	// 呼び出し元が切断しても送る。ただし timeout で打ち切る
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: p.now().UTC()}); err != nil {
		return err
	}
	p.logger.Debug("event published", zap.String("key", key))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return errors.Join(p.placed.Close(), p.changed.Close())
}
