// Package analytics は注文履歴の集計。
// どの関数も渡されたスライスとマップを読むだけで、何も書き換えない。
package analytics

import (
	"sort"
	"time"

	"orderhub/internal/domain/model"

	"github.com/shopspring/decimal"
)

type Spending struct {
	CustomerID        string          `json:"customerId"`
	TotalSpent        decimal.Decimal `json:"totalSpent"`
	OrderCount        int             `json:"orderCount"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	LastOrderDate     time.Time       `json:"lastOrderDate"`
}

type TopProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	TotalSold int64  `json:"totalSold"`
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type SalesAnalytics struct {
	TotalRevenue      decimal.Decimal   `json:"totalRevenue"`
	CompletedOrders   int               `json:"completedOrders"`
	CategoryBreakdown []CategoryRevenue `json:"categoryBreakdown"`
}

// CustomerSpending は顧客の注文合計・件数・平均・最終注文日。
// 注文が1件も無ければ false（エラーではない）。
func CustomerSpending(customerID string, orders []model.Order) (Spending, bool) {
	out := Spending{CustomerID: customerID, TotalSpent: decimal.Zero, AverageOrderValue: decimal.Zero}
	for _, o := range orders {
		if o.CustomerID != customerID {
			continue
		}
		out.TotalSpent = out.TotalSpent.Add(o.TotalAmount)
		out.OrderCount++
		if o.OrderDate.After(out.LastOrderDate) {
			out.LastOrderDate = o.OrderDate
		}
	}
	if out.OrderCount == 0 {
		return Spending{}, false
	}
	out.AverageOrderValue = out.TotalSpent.Div(decimal.NewFromInt(int64(out.OrderCount)))
	return out, true
}

// TopSelling は販売数量の多い順に上位limit件。
// 同数のときは商品IDの昇順。商品が引けない行はlimit適用後に落とす。
func TopSelling(orders []model.Order, products map[string]model.Product, limit int) []TopProduct {
	out := []TopProduct{}
	if limit <= 0 {
		return out
	}

	sold := map[string]int64{}
	for _, o := range orders {
		for _, it := range o.Items {
			sold[it.ProductID] += it.Quantity
		}
	}

	ranked := make([]TopProduct, 0, len(sold))
	for id, qty := range sold {
		ranked = append(ranked, TopProduct{ProductID: id, TotalSold: qty})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalSold != ranked[j].TotalSold {
			return ranked[i].TotalSold > ranked[j].TotalSold
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for _, tp := range ranked {
		p, ok := products[tp.ProductID]
		if !ok {
			continue
		}
		tp.Name = p.Name
		out = append(out, tp)
	}
	return out
}

// Sales は [start, end]（両端含む）の注文の売上・完了件数・カテゴリ別売上。
// カテゴリは商品の「現在の」カテゴリ、金額は priceAtPurchase で計算する。
func Sales(orders []model.Order, products map[string]model.Product, start, end time.Time) SalesAnalytics {
	out := SalesAnalytics{
		TotalRevenue:      decimal.Zero,
		CategoryBreakdown: []CategoryRevenue{},
	}

	byCategory := map[string]decimal.Decimal{}
	for _, o := range InRange(orders, start, end) {
		out.TotalRevenue = out.TotalRevenue.Add(o.TotalAmount)
		if o.Status == model.OrderStatusCompleted {
			out.CompletedOrders++
		}
		for _, it := range o.Items {
			p, ok := products[it.ProductID]
			if !ok {
				continue
			}
			byCategory[p.Category] = byCategory[p.Category].Add(it.LineTotal())
		}
	}

	for cat, rev := range byCategory {
		out.CategoryBreakdown = append(out.CategoryBreakdown, CategoryRevenue{Category: cat, Revenue: rev})
	}
	sort.Slice(out.CategoryBreakdown, func(i, j int) bool {
		return out.CategoryBreakdown[i].Category < out.CategoryBreakdown[j].Category
	})
	return out
}

// InRange は orderDate が [start, end] に入る注文だけ返す
func InRange(orders []model.Order, start, end time.Time) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.OrderDate.Before(start) || o.OrderDate.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ProductIDs は明細に出てくる商品IDを重複なしで昇順に返す（join用）
func ProductIDs(orders []model.Order) []string {
	seen := map[string]struct{}{}
	for _, o := range orders {
		for _, it := range o.Items {
			seen[it.ProductID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func IndexProducts(products []model.Product) map[string]model.Product {
	m := make(map[string]model.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
