package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"orderhub/internal/domain/model"
	repo "orderhub/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	CustomersFile = "customers.csv"
	ProductsFile  = "products.csv"
	OrdersFile    = "orders.csv"
)

// 注文日時として受け付ける形式（上から順に試す）
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type Result struct {
	Customers int
	Products  int
	Orders    int
}

type Importer struct {
	tx     repo.TransactionManager
	logger *zap.Logger
}

func New(tx repo.TransactionManager, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{tx: tx, logger: logger}
}

// ImportDir は dir の3ファイルを読んで、ストアの中身を丸ごと入れ替える。
// 全部読めてから1トランザクションで書くので、途中で失敗したら何も変わらない
func (im *Importer) ImportDir(ctx context.Context, dir string) (Result, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return Result{}, fmt.Errorf("data directory not found: %s", dir)
	}

	customers, err := readFile(filepath.Join(dir, CustomersFile), ParseCustomers)
	if err != nil {
		return Result{}, err
	}
	products, err := readFile(filepath.Join(dir, ProductsFile), ParseProducts)
	if err != nil {
		return Result{}, err
	}
	orders, err := readFile(filepath.Join(dir, OrdersFile), func(r io.Reader) ([]model.Order, error) {
		return ParseOrders(r, im.logger)
	})
	if err != nil {
		return Result{}, err
	}

	err = im.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Customers().ReplaceAll(ctx, customers); err != nil {
			return fmt.Errorf("import customers: %w", describe(err))
		}
		if err := r.Products().ReplaceAll(ctx, products); err != nil {
			return fmt.Errorf("import products: %w", describe(err))
		}
		if err := r.Orders().ReplaceAll(ctx, orders); err != nil {
			return fmt.Errorf("import orders: %w", describe(err))
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Customers: len(customers), Products: len(products), Orders: len(orders)}
	im.logger.Info("data imported",
		zap.Int("customers", res.Customers),
		zap.Int("products", res.Products),
		zap.Int("orders", res.Orders))
	return res, nil
}

func describe(err error) error {
	if errors.Is(err, repo.ErrConflict) {
		return fmt.Errorf("duplicate id or unique key: %w", err)
	}
	return err
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// ヘッダ行つきCSVを列名→値のmapで返す（値はtrim済み）
func readRows(r io.Reader, required ...string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	for _, col := range required {
		if !contains(header, col) {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	rows := []map[string]string{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func ParseCustomers(r io.Reader) ([]model.Customer, error) {
	rows, err := readRows(r, "_id", "name", "email")
	if err != nil {
		return nil, err
	}

	out := make([]model.Customer, 0, len(rows))
	for i, row := range rows {
		if row["_id"] == "" {
			return nil, fmt.Errorf("row %d: _id required", i+2)
		}
		c := model.Customer{
			ID:       row["_id"],
			Name:     row["name"],
			Email:    row["email"],
			Location: optional(row["location"]),
			Gender:   optional(row["gender"]),
		}
		// 数値でなければ未設定
		if age, err := strconv.Atoi(row["age"]); err == nil {
			c.Age = &age
		}
		out = append(out, c)
	}
	return out, nil
}

func ParseProducts(r io.Reader) ([]model.Product, error) {
	rows, err := readRows(r, "_id", "name", "category", "price", "stock")
	if err != nil {
		return nil, err
	}

	out := make([]model.Product, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		if row["_id"] == "" {
			return nil, fmt.Errorf("row %d: _id required", line)
		}
		price, err := decimal.NewFromString(row["price"])
		if err != nil || price.IsNegative() || !model.ValidPriceScale(price) {
			return nil, fmt.Errorf("row %d: invalid price %q", line, row["price"])
		}
		stock, err := strconv.ParseInt(row["stock"], 10, 64)
		if err != nil || stock < 0 {
			return nil, fmt.Errorf("row %d: invalid stock %q", line, row["stock"])
		}
		out = append(out, model.Product{
			ID:       row["_id"],
			Name:     row["name"],
			Category: row["category"],
			Price:    price,
			Stock:    stock,
		})
	}
	return out, nil
}

var errInvalidQuantity = errors.New("invalid quantity")

// products列の1要素。数値は "2" のような文字列でも受け付ける
type lineCell struct {
	ProductID       string          `json:"productId"`
	Quantity        decimal.Decimal `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

func ParseOrders(r io.Reader, logger *zap.Logger) ([]model.Order, error) {
	rows, err := readRows(r, "_id", "customerId", "products", "totalAmount", "orderDate", "status")
	if err != nil {
		return nil, err
	}

	out := make([]model.Order, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		if row["_id"] == "" {
			return nil, fmt.Errorf("row %d: _id required", line)
		}

		total, err := decimal.NewFromString(row["totalAmount"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid totalAmount %q", line, row["totalAmount"])
		}
		orderDate, err := parseOrderDate(row["orderDate"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		status, err := normalizeStatus(row["status"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		items, err := ParseItems(row["products"])
		if errors.Is(err, errInvalidQuantity) {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if err != nil {
			// 明細が読めない注文は空の明細で取り込む
			logger.Warn("parse order products failed", zap.String("order_id", row["_id"]), zap.Error(err))
			items = []model.OrderItem{}
		}
		for j := range items {
			items[j].OrderID = row["_id"]
		}

		out = append(out, model.Order{
			ID:          row["_id"],
			CustomerID:  row["customerId"],
			Items:       items,
			TotalAmount: total,
			OrderDate:   orderDate,
			Status:      status,
		})
	}
	return out, nil
}

// ParseItems はシングルクォートのJSON風リストを読む
func ParseItems(cell string) ([]model.OrderItem, error) {
	var cells []lineCell
	if err := json.Unmarshal([]byte(strings.ReplaceAll(cell, "'", `"`)), &cells); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(cells))
	for i, c := range cells {
		if !c.Quantity.IsInteger() || c.Quantity.LessThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: %s for product %s", errInvalidQuantity, c.Quantity, c.ProductID)
		}
		items = append(items, model.OrderItem{
			Position:        i,
			ProductID:       c.ProductID,
			Quantity:        c.Quantity.IntPart(),
			PriceAtPurchase: c.PriceAtPurchase,
		})
	}
	return items, nil
}

func parseOrderDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid orderDate %q", v)
}

func normalizeStatus(v string) (model.OrderStatus, error) {
	// 元データの綴り揺れ
	if v == "canceled" {
		v = string(model.OrderStatusCancelled)
	}
	st, ok := model.ParseOrderStatus(v)
	if !ok {
		return "", fmt.Errorf("invalid status %q", v)
	}
	return st, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
