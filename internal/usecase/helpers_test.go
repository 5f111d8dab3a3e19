package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"orderhub/internal/domain/model"
	"orderhub/internal/infra/memory"
	repo "orderhub/internal/repository"
	"orderhub/internal/usecase"
	"orderhub/internal/validator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// 並行テストでも重複しない連番ID
type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) NewID() string {
	return fmt.Sprintf("order-%03d", g.n.Add(1))
}

// commit後に届いたイベントを記録する
type recordingPublisher struct {
	mu      sync.Mutex
	placed  []model.Order
	changed []string
	err     error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, o model.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, o)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, o model.Order, previous model.OrderStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, string(previous)+"->"+string(o.Status))
	return p.err
}

type recordingMetrics struct {
	mu       sync.Mutex
	placed   map[string]int
	statuses []model.OrderStatus
	queries  []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{placed: map[string]int{}}
}

func (m *recordingMetrics) OrderPlaced(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed[result]++
}

func (m *recordingMetrics) OrderStatusUpdated(status model.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *recordingMetrics) AnalyticsQuery(query string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s got %s", want, got.String())
}

func assertKind(t *testing.T, err error, kind usecase.ErrorKind) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, usecase.IsKind(err, kind), "err=%v want kind %s", err, kind)
	}
}

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

// c1 と 2つの商品（p1: 10.00 x5, p2: 2.50 x3）
func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	seed(t, s,
		[]model.Customer{{ID: "c1", Name: "Alice", Email: "alice@example.com"}},
		[]model.Product{
			{ID: "p1", Name: "Keyboard", Category: "electronics", Price: dec("10.00"), Stock: 5},
			{ID: "p2", Name: "Notebook", Category: "stationery", Price: dec("2.50"), Stock: 3},
		},
		nil,
	)
	return s
}

func seed(t *testing.T, s *memory.Store, customers []model.Customer, products []model.Product, orders []model.Order) {
	t.Helper()
	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		if err := r.Customers().ReplaceAll(context.Background(), customers); err != nil {
			return err
		}
		if err := r.Products().ReplaceAll(context.Background(), products); err != nil {
			return err
		}
		return r.Orders().ReplaceAll(context.Background(), orders)
	})
	require.NoError(t, err)
}

func stockOf(t *testing.T, s *memory.Store, productID string) int64 {
	t.Helper()
	var stock int64
	err := s.WithinReadOnlyTx(context.Background(), func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(context.Background(), productID)
		stock = p.Stock
		return err
	})
	require.NoError(t, err)
	return stock
}

func orderCount(t *testing.T, s *memory.Store) int {
	t.Helper()
	var n int
	err := s.WithinReadOnlyTx(context.Background(), func(r repo.TxRepos) error {
		orders, err := r.Orders().Query(context.Background(), repo.OrderFilter{})
		n = len(orders)
		return err
	})
	require.NoError(t, err)
	return n
}

type orderFixture struct {
	store   *memory.Store
	uc      *usecase.OrderUsecase
	events  *recordingPublisher
	metrics *recordingMetrics
}

func newOrderFixture(t *testing.T) orderFixture {
	t.Helper()
	s := newSeededStore(t)
	ev := &recordingPublisher{}
	m := newRecordingMetrics()
	uc := usecase.NewOrderUsecase(s, validator.NewOrderValidator(), &seqIDs{}, fixedClock{testNow}, ev, m, nil)
	return orderFixture{store: s, uc: uc, events: ev, metrics: m}
}

func lines(pairs ...any) []usecase.OrderLineInput {
	out := []usecase.OrderLineInput{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, usecase.OrderLineInput{ProductID: pairs[i].(string), Quantity: int64(pairs[i+1].(int))})
	}
	return out
}
