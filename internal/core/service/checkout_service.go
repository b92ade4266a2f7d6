package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/port"
)

type CommitRequest struct {
	CustomerName  string `json:"customer_name"`
	PaymentMethod string `json:"payment_method"`
}

type CommitResult struct {
	Order     domain.Order           `json:"order"`
	Cart      *domain.Cart           `json:"cart"`
	Inventory []domain.InventoryItem `json:"inventory"`
}

// CheckoutService keeps one cart per session and turns it into an order.
type CheckoutService struct {
	inventory port.InventoryRepository
	carts     port.CartRepository
	tx        port.Transactor
	events    port.OrderEventPublisher
	logger    *zap.Logger
	now       func() time.Time
	newToken  func() string
}

func NewCheckoutService(
	inventory port.InventoryRepository,
	carts port.CartRepository,
	tx port.Transactor,
	events port.OrderEventPublisher,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		inventory: inventory,
		carts:     carts,
		tx:        tx,
		events:    events,
		logger:    logger,
		now:       time.Now,
		newToken:  uuid.NewString,
	}
}

// AvailableInventory lists sellable items (quantity > 0) matching search on name or brand.
func (s *CheckoutService) AvailableInventory(ctx context.Context, search string) ([]domain.InventoryItem, error) {
	items, err := s.inventory.ListAvailableInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	return domain.InventoryFilter{Search: search}.Apply(items), nil
}

// Cart returns the session cart, or a new empty one. While a commit is in
// flight the returned cart reports SaleCommitting.
func (s *CheckoutService) Cart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	busy, err := s.carts.CommitInProgress(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("check commit lock: %w", err)
	}
	if busy {
		cart.State = domain.SaleCommitting
	}
	return cart, nil
}

func (s *CheckoutService) AddToCart(ctx context.Context, sessionID string, itemID int64) (*domain.Cart, error) {
	item, err := s.inventory.GetInventoryItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		if _, ok := cart.Line(itemID); !ok && item.Quantity <= 0 {
			return domain.ErrInsufficientStock
		}
		cart.RefreshItem(*item)
		cart.AddToCart(*item)
		return nil
	})
}

func (s *CheckoutService) UpdateQuantity(ctx context.Context, sessionID string, itemID int64, quantity int) (*domain.Cart, error) {
	item, err := s.inventory.GetInventoryItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		if _, ok := cart.Line(itemID); !ok {
			return domain.ErrItemNotFound
		}
		if item != nil {
			cart.RefreshItem(*item)
		}
		cart.UpdateQuantity(itemID, quantity)
		return nil
	})
}

func (s *CheckoutService) RemoveFromCart(ctx context.Context, sessionID string, itemID int64) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		cart.RemoveFromCart(itemID)
		return nil
	})
}

// SetCustomer records the customer name and payment method for the sale.
func (s *CheckoutService) SetCustomer(ctx context.Context, sessionID, customerName, paymentMethod string) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		cart.CustomerName = customerName
		if paymentMethod != "" {
			cart.PaymentMethod = paymentMethod
		}
		return nil
	})
}

// ClearCart resets the session to an empty cart.
func (s *CheckoutService) ClearCart(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		*cart = *domain.NewCart()
		return nil
	})
	return err
}

// CommitOrder records the session cart as an order. The order row, its items
// and the stock decrements are written in one transaction, in that order; a
// line without enough stock rolls the whole sale back and leaves the cart intact.
func (s *CheckoutService) CommitOrder(ctx context.Context, sessionID string, req CommitRequest, actor domain.Profile) (*CommitResult, error) {
	token := s.newToken()
	ok, err := s.carts.AcquireCommitLock(ctx, sessionID, token)
	if err != nil {
		return nil, fmt.Errorf("acquire commit lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrCommitInProgress
	}
	defer func() {
		if err := s.carts.ReleaseCommitLock(context.WithoutCancel(ctx), sessionID, token); err != nil {
			s.logger.Warn("failed to release commit lock", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()

	// The cart is read only under the lock.
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := cart.CheckCommittable(); err != nil {
		return nil, err
	}

	if err := cart.Transition(domain.SaleCommitting); err != nil {
		return nil, err
	}

	customerName := req.CustomerName
	if customerName == "" {
		customerName = cart.CustomerName
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = cart.PaymentMethod
	}

	order := cart.ToOrder(customerName, paymentMethod, actor.ID)
	order.CreatedAt = s.now()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx port.CheckoutTx) error {
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		order.ID = id
		for i := range order.Items {
			order.Items[i].OrderID = id
		}

		if err := tx.CreateOrderItems(ctx, order.Items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		for _, item := range order.Items {
			ok, err := tx.DecrementStock(ctx, item.InventoryID, item.Quantity, order.CreatedAt)
			if err != nil {
				return fmt.Errorf("decrement stock of item %d: %w", item.InventoryID, err)
			}
			if !ok {
				return fmt.Errorf("%w: item %d", domain.ErrInsufficientStock, item.InventoryID)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("order commit failed",
			zap.String("session_id", sessionID),
			zap.String("actor_id", actor.ID),
			zap.Error(err),
		)
		_ = cart.Transition(domain.SaleFailed)
		cart.LastError = err.Error()
		if saveErr := s.carts.SaveCart(context.WithoutCancel(ctx), sessionID, cart); saveErr != nil {
			s.logger.Warn("failed to save cart after failed commit", zap.String("session_id", sessionID), zap.Error(saveErr))
		}
		return nil, err
	}

	_ = cart.Transition(domain.SaleCommitted)
	s.logger.Info("order committed",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.TotalAmount.String()),
		zap.Int("lines", len(order.Items)),
		zap.String("actor_id", actor.ID),
	)

	next := domain.NewCart()
	next.PaymentMethod = cart.PaymentMethod
	if err := s.carts.SaveCart(ctx, sessionID, next); err != nil {
		s.logger.Error("failed to reset cart after commit", zap.String("session_id", sessionID), zap.Error(err))
	}

	available, err := s.inventory.ListAvailableInventory(ctx)
	if err != nil {
		s.logger.Warn("failed to reload inventory after commit", zap.Error(err))
	}

	event := domain.OrderCommitted{
		EventID:       s.newToken(),
		OrderID:       order.ID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		CreatedBy:     order.CreatedBy,
		Items:         order.Items,
		CommittedAt:   order.CreatedAt,
	}
	if err := s.events.PublishOrderCommitted(ctx, event); err != nil {
		s.logger.Warn("failed to publish order event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return &CommitResult{Order: order, Cart: next, Inventory: available}, nil
}

func (s *CheckoutService) loadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.carts.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil {
		cart = domain.NewCart()
	}
	return cart, nil
}

// mutate applies fn to the session cart atomically. It is rejected while a
// commit holds the session lock.
func (s *CheckoutService) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	return s.carts.UpdateCart(ctx, sessionID, func(cart *domain.Cart) error {
		if err := fn(cart); err != nil {
			return err
		}
		if cart.State != domain.SaleBuilding {
			_ = cart.Transition(domain.SaleBuilding)
			cart.LastError = ""
		}
		return nil
	})
}
