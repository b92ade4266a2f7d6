package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPaymentMethod is used when a sale is committed without one.
const DefaultPaymentMethod = "cash"

type Order struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customer_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	OrderID     int64           `json:"order_id"`
	InventoryID int64           `json:"inventory_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderTotal is the slice of an order the dashboard reads.
type OrderTotal struct {
	ID            int64
	TotalAmount   decimal.Decimal
	PaymentMethod string
}

// SoldItem is an order item joined with its inventory name. Name is empty
// when the inventory row no longer exists.
type SoldItem struct {
	InventoryID int64
	Quantity    int
	Name        string
}

// OrderCommitted is published after a sale has been durably recorded.
type OrderCommitted struct {
	EventID       string          `json:"event_id"`
	OrderID       int64           `json:"order_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	CreatedBy     string          `json:"created_by"`
	Items         []OrderItem     `json:"items"`
	CommittedAt   time.Time       `json:"committed_at"`
}
