package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SaleState tracks one sale through checkout.
type SaleState string

const (
	SaleBuilding   SaleState = "building"
	SaleCommitting SaleState = "committing"
	SaleCommitted  SaleState = "committed"
	SaleFailed     SaleState = "failed"
)

// CanTransition reports whether a sale may move from s to next.
// A failed sale keeps its cart and may be committed again.
func (s SaleState) CanTransition(next SaleState) bool {
	switch s {
	case SaleBuilding, SaleFailed, "":
		return next == SaleCommitting || next == SaleBuilding
	case SaleCommitting:
		return next == SaleCommitted || next == SaleFailed
	case SaleCommitted:
		return next == SaleBuilding
	default:
		return false
	}
}

type CartItem struct {
	Item         InventoryItem   `json:"item"`
	CartQuantity int             `json:"cart_quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// Cart is the in-progress sale of one session. Lines are unique by item ID
// and kept in the order they were first added.
type Cart struct {
	Lines         []CartItem `json:"lines"`
	CustomerName  string     `json:"customer_name"`
	PaymentMethod string     `json:"payment_method"`
	State         SaleState  `json:"state"`
	LastError     string     `json:"last_error,omitempty"`
}

func NewCart() *Cart {
	return &Cart{
		Lines:         []CartItem{},
		PaymentMethod: DefaultPaymentMethod,
		State:         SaleBuilding,
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) indexOf(itemID int64) int {
	for i := range c.Lines {
		if c.Lines[i].Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) Line(itemID int64) (CartItem, bool) {
	if i := c.indexOf(itemID); i >= 0 {
		return c.Lines[i], true
	}
	return CartItem{}, false
}

// AddToCart inserts item with quantity 1, or increments an existing line while
// it is below the stock captured in the line. At the stock ceiling it does nothing.
func (c *Cart) AddToCart(item InventoryItem) {
	i := c.indexOf(item.ID)
	if i < 0 {
		c.Lines = append(c.Lines, CartItem{
			Item:         item,
			CartQuantity: 1,
			Subtotal:     item.Price,
		})
		return
	}

	line := &c.Lines[i]
	if line.CartQuantity < line.Item.Quantity {
		line.CartQuantity++
		line.Subtotal = lineSubtotal(line.CartQuantity, line.Item.Price)
	}
}

// UpdateQuantity caps requested at the available stock. There is no lower
// bound: a zero or negative quantity stays on the line.
func (c *Cart) UpdateQuantity(itemID int64, requested int) {
	i := c.indexOf(itemID)
	if i < 0 {
		return
	}
	line := &c.Lines[i]
	line.CartQuantity = min(requested, line.Item.Quantity)
	line.Subtotal = lineSubtotal(line.CartQuantity, line.Item.Price)
}

func (c *Cart) RemoveFromCart(itemID int64) {
	if i := c.indexOf(itemID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// RefreshItem replaces the captured inventory snapshot of a line, keeping
// its quantity. The subtotal follows the new price.
func (c *Cart) RefreshItem(item InventoryItem) {
	if i := c.indexOf(item.ID); i >= 0 {
		line := &c.Lines[i]
		line.Item = item
		line.Subtotal = lineSubtotal(line.CartQuantity, item.Price)
	}
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.CartQuantity
	}
	return count
}

// CheckCommittable rejects carts that cannot become an order.
func (c *Cart) CheckCommittable() error {
	if c.IsEmpty() {
		return ErrEmptyCart
	}
	for _, line := range c.Lines {
		if line.CartQuantity < 1 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrInvalidLineQuantity, line.Item.ID, line.CartQuantity)
		}
	}
	return nil
}

func (c *Cart) Transition(next SaleState) error {
	if !c.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.State, next)
	}
	c.State = next
	return nil
}

// ToOrder captures the cart as an order and its items. Prices and quantities
// come from the cart, not from the store.
func (c *Cart) ToOrder(customerName, paymentMethod, actorID string) Order {
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}
	order := Order{
		CustomerName:  customerName,
		TotalAmount:   c.Total(),
		PaymentMethod: paymentMethod,
		CreatedBy:     actorID,
		Items:         make([]OrderItem, 0, len(c.Lines)),
	}
	for _, line := range c.Lines {
		order.Items = append(order.Items, OrderItem{
			InventoryID: line.Item.ID,
			Quantity:    line.CartQuantity,
			Price:       line.Item.Price,
			Subtotal:    line.Subtotal,
		})
	}
	return order
}

func lineSubtotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
