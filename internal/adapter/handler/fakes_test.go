package handler

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/port"
)

// fakeStore is a minimal in-memory store of record for handler tests.
type fakeStore struct {
	mu     sync.Mutex
	items  map[int64]domain.InventoryItem
	orders []domain.Order
	sold   []domain.OrderItem
	users  map[string]fakeUser
	nextID int64
}

type fakeUser struct {
	profile domain.Profile
	hash    []byte
}

func newFakeStore(items ...domain.InventoryItem) *fakeStore {
	s := &fakeStore{items: map[int64]domain.InventoryItem{}, users: map[string]fakeUser{}, nextID: 100}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakeStore) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		return &item, nil
	}
	return nil, nil
}

func (s *fakeStore) list(available bool) []domain.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []domain.InventoryItem{}
	for _, item := range s.items {
		if !available || item.Quantity > 0 {
			items = append(items, item)
		}
	}
	return items
}

func (s *fakeStore) ListAvailableInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.list(true), nil
}

func (s *fakeStore) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.list(false), nil
}

func (s *fakeStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Apparel"}}, nil
}

func (s *fakeStore) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.CategoryID != 1 {
		return 0, domain.NewConstraintError(domain.ConstraintForeignKey, nil)
	}
	s.nextID++
	item.ID = s.nextID
	s.items[item.ID] = item
	return item.ID, nil
}

func (s *fakeStore) UpdateInventoryItem(ctx context.Context, id int64, item domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	s.items[id] = item
	return nil
}

func (s *fakeStore) DeleteInventoryItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.CheckoutTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make(map[int64]domain.InventoryItem, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	orders, sold := len(s.orders), len(s.sold)

	if err := fn(ctx, fakeTx{s}); err != nil {
		s.items, s.orders, s.sold = items, s.orders[:orders], s.sold[:sold]
		return err
	}
	return nil
}

type fakeTx struct{ s *fakeStore }

func (t fakeTx) CreateOrder(ctx context.Context, order domain.Order) (int64, error) {
	t.s.nextID++
	order.ID = t.s.nextID
	t.s.orders = append(t.s.orders, order)
	return order.ID, nil
}

func (t fakeTx) CreateOrderItems(ctx context.Context, items []domain.OrderItem) error {
	t.s.sold = append(t.s.sold, items...)
	return nil
}

func (t fakeTx) DecrementStock(ctx context.Context, id int64, quantity int, at time.Time) (bool, error) {
	item, ok := t.s.items[id]
	if !ok || item.Quantity < quantity {
		return false, nil
	}
	item.Quantity -= quantity
	t.s.items[id] = item
	return true, nil
}

func (s *fakeStore) ListOrderTotals(ctx context.Context) ([]domain.OrderTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OrderTotal
	for _, o := range s.orders {
		out = append(out, domain.OrderTotal{ID: o.ID, TotalAmount: o.TotalAmount, PaymentMethod: o.PaymentMethod})
	}
	return out, nil
}

func (s *fakeStore) ListSoldItems(ctx context.Context) ([]domain.SoldItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SoldItem
	for _, oi := range s.sold {
		out = append(out, domain.SoldItem{InventoryID: oi.InventoryID, Quantity: oi.Quantity, Name: s.items[oi.InventoryID].Name})
	}
	return out, nil
}

func (s *fakeStore) ListLowStock(ctx context.Context, threshold int) ([]domain.LowStockItem, error) {
	return nil, nil
}

func (s *fakeStore) CreateUser(ctx context.Context, profile domain.Profile, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.profile.Email == profile.Email {
			return domain.ErrEmailTaken
		}
	}
	s.users[profile.ID] = fakeUser{profile: profile, hash: hash}
	return nil
}

func (s *fakeStore) FindCredentials(ctx context.Context, email string) (*domain.Profile, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.profile.Email == email {
			p := u.profile
			return &p, u.hash, nil
		}
	}
	return nil, nil, nil
}

func (s *fakeStore) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		p := u.profile
		return &p, nil
	}
	return nil, nil
}

// fakeCarts keeps carts in memory. Carts are copied on load and save.
type fakeCarts struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
	locks map[string]string
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[string]domain.Cart{}, locks: map[string]string{}}
}

func (f *fakeCarts) LoadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[sessionID]
	if !ok {
		return nil, nil
	}
	cart.Lines = append([]domain.CartItem{}, cart.Lines...)
	return &cart, nil
}

func (f *fakeCarts) SaveCart(ctx context.Context, sessionID string, cart *domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *cart
	c.Lines = append([]domain.CartItem{}, cart.Lines...)
	f.carts[sessionID] = c
	return nil
}

func (f *fakeCarts) UpdateCart(ctx context.Context, sessionID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.locks[sessionID]; held {
		return nil, domain.ErrCommitInProgress
	}
	cart, ok := f.carts[sessionID]
	if !ok {
		cart = *domain.NewCart()
	}
	cart.Lines = append([]domain.CartItem{}, cart.Lines...)
	if err := fn(&cart); err != nil {
		return nil, err
	}
	saved := cart
	saved.Lines = append([]domain.CartItem{}, cart.Lines...)
	f.carts[sessionID] = saved
	return &cart, nil
}

func (f *fakeCarts) AcquireCommitLock(ctx context.Context, sessionID, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.locks[sessionID]; held {
		return false, nil
	}
	f.locks[sessionID] = token
	return true, nil
}

func (f *fakeCarts) ReleaseCommitLock(ctx context.Context, sessionID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[sessionID] == token {
		delete(f.locks, sessionID)
	}
	return nil
}

func (f *fakeCarts) CommitInProgress(ctx context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, held := f.locks[sessionID]
	return held, nil
}
