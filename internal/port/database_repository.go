package port

import (
	"context"
	"time"

	"github.com/rl1809/event-pos/internal/core/domain"
)

type InventoryRepository interface {
	// GetInventoryItem returns nil when the item does not exist
	GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error)

	// ListAvailableInventory returns items with quantity > 0, ordered by name
	ListAvailableInventory(ctx context.Context) ([]domain.InventoryItem, error)

	// ListInventory returns all items joined with their category, ordered by name
	ListInventory(ctx context.Context) ([]domain.InventoryItem, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)

	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (int64, error)

	// UpdateInventoryItem returns domain.ErrItemNotFound when no row matches
	UpdateInventoryItem(ctx context.Context, id int64, item domain.InventoryItem) error

	DeleteInventoryItem(ctx context.Context, id int64) error
}

// CheckoutTx is the set of writes a commit performs inside one transaction.
type CheckoutTx interface {
	// CreateOrder inserts the order row and returns its generated ID
	CreateOrder(ctx context.Context, order domain.Order) (int64, error)

	// CreateOrderItems batch-inserts the order lines
	CreateOrderItems(ctx context.Context, items []domain.OrderItem) error

	// DecrementStock subtracts quantity only while enough stock remains, returns false otherwise
	DecrementStock(ctx context.Context, inventoryID int64, quantity int, at time.Time) (bool, error)
}

type Transactor interface {
	// WithinTx commits when fn returns nil and rolls everything back otherwise
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error
}

type SalesRepository interface {
	ListOrderTotals(ctx context.Context) ([]domain.OrderTotal, error)

	// ListSoldItems returns every order item joined with its inventory name
	ListSoldItems(ctx context.Context) ([]domain.SoldItem, error)

	// ListLowStock returns items with quantity < threshold, lowest first
	ListLowStock(ctx context.Context, threshold int) ([]domain.LowStockItem, error)
}

type UserRepository interface {
	// CreateUser stores credentials and profile together, domain.ErrEmailTaken on duplicates
	CreateUser(ctx context.Context, profile domain.Profile, passwordHash []byte) error

	// FindCredentials returns nil profile when the email is unknown
	FindCredentials(ctx context.Context, email string) (*domain.Profile, []byte, error)

	// GetProfile returns nil when the user does not exist
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
}
