package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the quantity below which an item is reported as low stock.
// Per-item MinStock is not consulted.
const LowStockThreshold = 5

// DefaultMinStock is applied when an item is created without a minimum stock.
const DefaultMinStock = 5

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type InventoryItem struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Brand      string          `json:"brand"`
	CategoryID int64           `json:"category_id"`
	Category   *Category       `json:"category,omitempty"`
	Size       string          `json:"size"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	Quantity   int             `json:"quantity"`
	MinStock   int             `json:"min_stock"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Matches reports whether the item name or brand contains search, ignoring case.
// An empty search matches everything.
func (i InventoryItem) Matches(search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(i.Name), search) ||
		strings.Contains(strings.ToLower(i.Brand), search)
}

type InventoryFilter struct {
	Search     string
	CategoryID int64 // 0 means all categories
}

func (f InventoryFilter) Apply(items []InventoryItem) []InventoryItem {
	out := make([]InventoryItem, 0, len(items))
	for _, item := range items {
		if !item.Matches(f.Search) {
			continue
		}
		if f.CategoryID != 0 && item.CategoryID != f.CategoryID {
			continue
		}
		out = append(out, item)
	}
	return out
}

// InventoryInput is the editable part of an inventory item.
type InventoryInput struct {
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	CategoryID     int64           `json:"category_id"`
	Size           string          `json:"size"`
	Price          decimal.Decimal `json:"price"`
	Cost           decimal.Decimal `json:"cost"`
	Quantity       int             `json:"quantity"`
	MinStock       *int            `json:"min_stock"`
	AllowBelowCost bool            `json:"allow_below_cost"`
}

// Normalize trims text fields and fills defaults.
func (in InventoryInput) Normalize() InventoryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Size = strings.TrimSpace(in.Size)
	if in.MinStock == nil {
		v := DefaultMinStock
		in.MinStock = &v
	}
	return in
}

// Validate runs the checks that must pass before the store is touched.
func (in InventoryInput) Validate() error {
	if in.Name == "" {
		return NewValidationError("name", MsgNameRequired)
	}
	if in.CategoryID <= 0 {
		return NewValidationError("category_id", MsgCategoryRequired)
	}
	if in.Price.IsNegative() {
		return NewValidationError("price", MsgPriceNegative)
	}
	if in.Cost.IsNegative() {
		return NewValidationError("cost", MsgCostNegative)
	}
	if in.Quantity < 0 {
		return NewValidationError("quantity", MsgQuantityNegative)
	}
	if in.MinStock != nil && *in.MinStock < 0 {
		return NewValidationError("min_stock", MsgMinStockNegative)
	}
	if in.Price.LessThan(in.Cost) && !in.AllowBelowCost {
		return ErrPriceBelowCost
	}
	return nil
}

func (in InventoryInput) ToItem() InventoryItem {
	item := InventoryItem{
		Name:       in.Name,
		Brand:      in.Brand,
		CategoryID: in.CategoryID,
		Size:       in.Size,
		Price:      in.Price,
		Cost:       in.Cost,
		Quantity:   in.Quantity,
		MinStock:   DefaultMinStock,
	}
	if in.MinStock != nil {
		item.MinStock = *in.MinStock
	}
	return item
}
