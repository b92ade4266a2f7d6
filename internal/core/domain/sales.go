package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TopSellingLimit is the number of items reported as top sellers.
const TopSellingLimit = 5

const unknownPaymentMethod = "unknown"

type TopSellingItem struct {
	InventoryID int64  `json:"inventory_id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
}

type PaymentMethodSales struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type LowStockItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type SalesSummary struct {
	Total                decimal.Decimal      `json:"total"`
	OrderCount           int                  `json:"order_count"`
	TopSellingItems      []TopSellingItem     `json:"top_selling_items"`
	SalesByPaymentMethod []PaymentMethodSales `json:"sales_by_payment_method"`
	LowStockItems        []LowStockItem       `json:"low_stock_items"`
}

// NormalizePaymentMethod trims, lowercases and capitalizes the first letter so
// free-text labels such as " cash", "CASH" and "Cash" collapse into "Cash".
// An empty label becomes "Unknown".
func NormalizePaymentMethod(raw string) string {
	if raw == "" {
		raw = unknownPaymentMethod
	}
	method := strings.ToLower(strings.TrimSpace(raw))
	r, size := utf8.DecodeRuneInString(method)
	if r == utf8.RuneError {
		return method
	}
	return string(unicode.ToUpper(r)) + method[size:]
}

// SummarizeOrders returns the revenue total and order count.
func SummarizeOrders(orders []OrderTotal) (decimal.Decimal, int) {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
	}
	return total, len(orders)
}

// SalesByPaymentMethod groups order totals by normalized payment method,
// in the order each method is first seen.
func SalesByPaymentMethod(orders []OrderTotal) []PaymentMethodSales {
	index := make(map[string]int)
	out := []PaymentMethodSales{}
	for _, o := range orders {
		method := NormalizePaymentMethod(o.PaymentMethod)
		i, ok := index[method]
		if !ok {
			i = len(out)
			index[method] = i
			out = append(out, PaymentMethodSales{Method: method, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(o.TotalAmount)
	}
	return out
}

// TopSellingItems sums quantities per inventory item and returns the limit
// largest, highest first. Ties keep first-seen order.
func TopSellingItems(items []SoldItem, limit int) []TopSellingItem {
	index := make(map[int64]int)
	grouped := []TopSellingItem{}
	for _, it := range items {
		i, ok := index[it.InventoryID]
		if !ok {
			name := it.Name
			if name == "" {
				name = fmt.Sprintf("Item #%d", it.InventoryID)
			}
			i = len(grouped)
			index[it.InventoryID] = i
			grouped = append(grouped, TopSellingItem{InventoryID: it.InventoryID, Name: name})
		}
		grouped[i].Quantity += it.Quantity
	}

	sort.SliceStable(grouped, func(a, b int) bool {
		return grouped[a].Quantity > grouped[b].Quantity
	})
	if limit >= 0 && len(grouped) > limit {
		grouped = grouped[:limit]
	}
	return grouped
}

// BuildSalesSummary derives the dashboard from raw rows. lowStock is expected
// to be already filtered and ordered by the store.
func BuildSalesSummary(orders []OrderTotal, sold []SoldItem, lowStock []LowStockItem) *SalesSummary {
	total, count := SummarizeOrders(orders)
	if lowStock == nil {
		lowStock = []LowStockItem{}
	}
	return &SalesSummary{
		Total:                total,
		OrderCount:           count,
		TopSellingItems:      TopSellingItems(sold, TopSellingLimit),
		SalesByPaymentMethod: SalesByPaymentMethod(orders),
		LowStockItems:        lowStock,
	}
}
