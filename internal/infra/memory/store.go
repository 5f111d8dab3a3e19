// Package memory はDB無しで動く TransactionManager の実装。
// テストとローカル起動（DATABASE_URL無し）で使う。
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"orderhub/internal/domain/model"
	repo "orderhub/internal/repository"

	"github.com/shopspring/decimal"
)

var errReadOnly = errors.New("memory store: write in read-only transaction")

// Store は書き込みトランザクションを直列に実行し、失敗時はundoログで戻す。
// 読み取り専用トランザクションは並行に走る。
type Store struct {
	mu        sync.RWMutex
	customers map[string]model.Customer
	products  map[string]model.Product
	orders    map[string]model.Order

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		customers: map[string]model.Customer{},
		products:  map[string]model.Product{},
		orders:    map[string]model.Order{},
		now:       time.Now,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txRepos{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	// commit直前にキャンセルされていたら何も残さない
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) WithinReadOnlyTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&txRepos{s: s, readOnly: true})
}

// txRepos はロック取得済みの Store を操作する
type txRepos struct {
	s        *Store
	readOnly bool
	undo     []func()
}

func (t *txRepos) Customers() repo.CustomerRepository  { return customerRepo{t} }
func (t *txRepos) Products() repo.ProductRepository    { return productRepo{t} }
func (t *txRepos) Inventory() repo.InventoryRepository { return inventoryRepo{t} }
func (t *txRepos) Orders() repo.OrderRepository        { return orderRepo{t} }

func (t *txRepos) write(undo func()) error {
	if t.readOnly {
		return errReadOnly
	}
	t.undo = append(t.undo, undo)
	return nil
}

// 逆順に戻す
func (t *txRepos) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type customerRepo struct{ t *txRepos }

func (r customerRepo) FindByID(_ context.Context, customerID string) (model.Customer, error) {
	c, ok := r.t.s.customers[customerID]
	if !ok {
		return model.Customer{}, repo.ErrNotFound
	}
	return c, nil
}

func (r customerRepo) List(_ context.Context) ([]model.Customer, error) {
	out := make([]model.Customer, 0, len(r.t.s.customers))
	for _, c := range r.t.s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r customerRepo) ReplaceAll(_ context.Context, customers []model.Customer) error {
	s := r.t.s
	prev := s.customers
	if err := r.t.write(func() { s.customers = prev }); err != nil {
		return err
	}

	next := make(map[string]model.Customer, len(customers))
	emails := make(map[string]struct{}, len(customers))
	now := s.now()
	for _, c := range customers {
		if _, dup := next[c.ID]; dup {
			return fmt.Errorf("%w: customer id %s", repo.ErrConflict, c.ID)
		}
		if _, dup := emails[c.Email]; dup {
			return fmt.Errorf("%w: customer email %s", repo.ErrConflict, c.Email)
		}
		emails[c.Email] = struct{}{}
		stamp(&c.CreatedAt, &c.UpdatedAt, now)
		next[c.ID] = c
	}
	s.customers = next
	return nil
}

type productRepo struct{ t *txRepos }

func (r productRepo) FindByID(_ context.Context, productID string) (model.Product, error) {
	p, ok := r.t.s.products[productID]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r productRepo) FindByIDs(_ context.Context, productIDs []string) ([]model.Product, error) {
	out := make([]model.Product, 0, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.t.s.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepo) List(_ context.Context) ([]model.Product, error) {
	out := make([]model.Product, 0, len(r.t.s.products))
	for _, p := range r.t.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepo) UpdatePrice(_ context.Context, productID string, price decimal.Decimal) (model.Product, error) {
	s := r.t.s
	p, ok := s.products[productID]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	prev := p
	if err := r.t.write(func() { s.products[productID] = prev }); err != nil {
		return model.Product{}, err
	}
	p.Price = price
	p.UpdatedAt = s.now()
	s.products[productID] = p
	return p, nil
}

func (r productRepo) ReplaceAll(_ context.Context, products []model.Product) error {
	s := r.t.s
	prev := s.products
	if err := r.t.write(func() { s.products = prev }); err != nil {
		return err
	}

	next := make(map[string]model.Product, len(products))
	now := s.now()
	for _, p := range products {
		if _, dup := next[p.ID]; dup {
			return fmt.Errorf("%w: product id %s", repo.ErrConflict, p.ID)
		}
		if p.Stock < 0 {
			return fmt.Errorf("product %s: stock must be >= 0", p.ID)
		}
		stamp(&p.CreatedAt, &p.UpdatedAt, now)
		next[p.ID] = p
	}
	s.products = next
	return nil
}

type inventoryRepo struct{ t *txRepos }

// ロック中なのでチェックと減算は分割されない
func (r inventoryRepo) DecreaseStockIfEnough(_ context.Context, productID string, qty int64) (bool, error) {
	if qty < 1 {
		return false, fmt.Errorf("decrease stock: invalid quantity %d", qty)
	}
	s := r.t.s
	p, ok := s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	prev := p
	if err := r.t.write(func() { s.products[productID] = prev }); err != nil {
		return false, err
	}
	p.Stock -= qty
	p.UpdatedAt = s.now()
	s.products[productID] = p
	return true, nil
}

type orderRepo struct{ t *txRepos }

func (r orderRepo) Create(_ context.Context, order model.Order) (model.Order, error) {
	s := r.t.s
	if _, dup := s.orders[order.ID]; dup {
		return model.Order{}, fmt.Errorf("%w: order id %s", repo.ErrConflict, order.ID)
	}
	if err := r.t.write(func() { delete(s.orders, order.ID) }); err != nil {
		return model.Order{}, err
	}
	order = order.Clone()
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	stamp(&order.CreatedAt, &order.UpdatedAt, s.now())
	s.orders[order.ID] = order
	return order.Clone(), nil
}

func (r orderRepo) FindByID(_ context.Context, orderID string) (model.Order, error) {
	o, ok := r.t.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o.Clone(), nil
}

func (r orderRepo) UpdateStatus(_ context.Context, orderID string, status model.OrderStatus) (model.Order, error) {
	s := r.t.s
	o, ok := s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	prev := o
	if err := r.t.write(func() { s.orders[orderID] = prev }); err != nil {
		return model.Order{}, err
	}
	o.Status = status
	o.UpdatedAt = s.now()
	s.orders[orderID] = o
	return o.Clone(), nil
}

func (r orderRepo) Query(_ context.Context, f repo.OrderFilter) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range r.t.s.orders {
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.From != nil && o.OrderDate.Before(*f.From) {
			continue
		}
		if f.To != nil && o.OrderDate.After(*f.To) {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.Before(out[j].OrderDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r orderRepo) ReplaceAll(_ context.Context, orders []model.Order) error {
	s := r.t.s
	prev := s.orders
	if err := r.t.write(func() { s.orders = prev }); err != nil {
		return err
	}

	next := make(map[string]model.Order, len(orders))
	now := s.now()
	for _, o := range orders {
		if _, dup := next[o.ID]; dup {
			return fmt.Errorf("%w: order id %s", repo.ErrConflict, o.ID)
		}
		o = o.Clone()
		for i := range o.Items {
			o.Items[i].OrderID = o.ID
		}
		stamp(&o.CreatedAt, &o.UpdatedAt, now)
		next[o.ID] = o
	}
	s.orders = next
	return nil
}

// 作成・更新時刻はストア側で埋める
func stamp(createdAt, updatedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = now
	}
}
