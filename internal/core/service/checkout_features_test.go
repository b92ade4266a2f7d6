package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/event-pos/internal/core/domain"
)

const featureSession = "terminal-1"

type checkoutTestContext struct {
	store     *memStore
	carts     *mockCartRepo
	svc       *CheckoutService
	lastOrder *domain.Order
	err       error
}

func (c *checkoutTestContext) reset() {
	c.store = newMemStore()
	c.carts = newMockCartRepo()
	c.svc = NewCheckoutService(c.store, c.carts, c.store, &recordingPublisher{}, zap.NewNop())
	c.lastOrder = nil
	c.err = nil
}

func (c *checkoutTestContext) theInventory(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		id, err := strconv.ParseInt(row.Cells[0].Value, 10, 64)
		if err != nil {
			return err
		}
		quantity, err := strconv.Atoi(row.Cells[3].Value)
		if err != nil {
			return err
		}
		c.store.items[id] = stockItem(id, row.Cells[1].Value, row.Cells[2].Value, quantity)
		if id > c.store.nextID {
			c.store.nextID = id
		}
	}
	return nil
}

func (c *checkoutTestContext) iAddItemToTheCartTimes(id, times int) error {
	for i := 0; i < times; i++ {
		if _, err := c.svc.AddToCart(context.Background(), featureSession, int64(id)); err != nil {
			return err
		}
	}
	return nil
}

func (c *checkoutTestContext) iSetTheQuantityOfItemTo(id, quantity int) error {
	_, err := c.svc.UpdateQuantity(context.Background(), featureSession, int64(id), quantity)
	return err
}

func (c *checkoutTestContext) itemIsSoldOutElsewhere(id int) error {
	c.store.setStock(int64(id), 0)
	return nil
}

func (c *checkoutTestContext) iCommitTheOrderPaying(method string) error {
	result, err := c.svc.CommitOrder(context.Background(), featureSession, CommitRequest{PaymentMethod: method}, cashier)
	c.err = err
	if err == nil {
		c.lastOrder = &result.Order
	}
	return nil
}

func (c *checkoutTestContext) cart() (*domain.Cart, error) {
	return c.svc.Cart(context.Background(), featureSession)
}

func (c *checkoutTestContext) theCartTotalIs(want string) error {
	cart, err := c.cart()
	if err != nil {
		return err
	}
	if !cart.Total().Equal(decimal.RequireFromString(want)) {
		return fmt.Errorf("expected total %s, got %s", want, cart.Total())
	}
	return nil
}

func (c *checkoutTestContext) theCartItemCountIs(want int) error {
	cart, err := c.cart()
	if err != nil {
		return err
	}
	if cart.ItemCount() != want {
		return fmt.Errorf("expected %d items, got %d", want, cart.ItemCount())
	}
	return nil
}

func (c *checkoutTestContext) theCartQuantityOfItemIs(id, want int) error {
	cart, err := c.cart()
	if err != nil {
		return err
	}
	line, ok := cart.Line(int64(id))
	if !ok {
		return fmt.Errorf("item %d is not in the cart", id)
	}
	if line.CartQuantity != want {
		return fmt.Errorf("expected quantity %d, got %d", want, line.CartQuantity)
	}
	return nil
}

func (c *checkoutTestContext) theCartIsEmpty() error {
	cart, err := c.cart()
	if err != nil {
		return err
	}
	if !cart.IsEmpty() {
		return fmt.Errorf("expected empty cart, got %d lines", len(cart.Lines))
	}
	return nil
}

func (c *checkoutTestContext) theCommitFailsWith(substring string) error {
	if c.err == nil {
		return errors.New("expected commit to fail but it succeeded")
	}
	if !strings.Contains(c.err.Error(), substring) {
		return fmt.Errorf("expected error to contain %q, got %q", substring, c.err.Error())
	}
	return nil
}

func (c *checkoutTestContext) ordersAreRecorded(want int) error {
	if got := c.store.orderCount(); got != want {
		return fmt.Errorf("expected %d orders, got %d", want, got)
	}
	return nil
}

func (c *checkoutTestContext) theLastOrderTotalIs(want string) error {
	if c.lastOrder == nil {
		return fmt.Errorf("no order committed: %v", c.err)
	}
	if !c.lastOrder.TotalAmount.Equal(decimal.RequireFromString(want)) {
		return fmt.Errorf("expected order total %s, got %s", want, c.lastOrder.TotalAmount)
	}
	return nil
}

func (c *checkoutTestContext) theStockOfItemIs(id, want int) error {
	if got := c.store.stock(int64(id)); got != want {
		return fmt.Errorf("expected stock %d, got %d", want, got)
	}
	return nil
}

func InitializeCheckoutScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the inventory:$`, tc.theInventory)

	// When steps
	ctx.Step(`^I add item (\d+) to the cart (\d+) times$`, tc.iAddItemToTheCartTimes)
	ctx.Step(`^I set the quantity of item (\d+) to (-?\d+)$`, tc.iSetTheQuantityOfItemTo)
	ctx.Step(`^item (\d+) is sold out elsewhere$`, tc.itemIsSoldOutElsewhere)
	ctx.Step(`^I commit the order paying "([^"]*)"$`, tc.iCommitTheOrderPaying)

	// Then steps
	ctx.Step(`^the cart total is (\d+(?:\.\d+)?)$`, tc.theCartTotalIs)
	ctx.Step(`^the cart item count is (\d+)$`, tc.theCartItemCountIs)
	ctx.Step(`^the cart quantity of item (\d+) is (-?\d+)$`, tc.theCartQuantityOfItemIs)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the commit fails with "([^"]*)"$`, tc.theCommitFailsWith)
	ctx.Step(`^(\d+) orders are recorded$`, tc.ordersAreRecorded)
	ctx.Step(`^the last order total is (\d+(?:\.\d+)?)$`, tc.theLastOrderTotalIs)
	ctx.Step(`^the stock of item (\d+) is (\d+)$`, tc.theStockOfItemIs)
}

func TestCheckoutFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeCheckoutScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
