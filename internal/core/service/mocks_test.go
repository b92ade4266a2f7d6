package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/port"
)

// memStore is an in-memory store of record. Transactions are serialized and
// roll back by restoring a snapshot.
type memStore struct {
	mu         sync.Mutex
	items      map[int64]domain.InventoryItem
	categories []domain.Category
	orders     []domain.Order
	orderItems []domain.OrderItem
	nextID     int64

	users map[string]memUser

	failOrderItems error
	failSales      error
	salesCalls     int

	// beforeTx, when set, runs before WithinTx starts the transaction.
	beforeTx func()
}

type memUser struct {
	profile domain.Profile
	hash    []byte
}

func newMemStore(items ...domain.InventoryItem) *memStore {
	s := &memStore{
		items: make(map[int64]domain.InventoryItem),
		users: make(map[string]memUser),
	}
	for _, item := range items {
		s.items[item.ID] = item
		if item.ID > s.nextID {
			s.nextID = item.ID
		}
	}
	return s
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Quantity
}

func (s *memStore) setStock(id int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.items[id]
	item.Quantity = quantity
	s.items[id] = item
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *memStore) sortedItems(keep func(domain.InventoryItem) bool) []domain.InventoryItem {
	items := []domain.InventoryItem{}
	for _, item := range s.items {
		if keep(item) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func (s *memStore) ListAvailableInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedItems(func(i domain.InventoryItem) bool { return i.Quantity > 0 }), nil
}

func (s *memStore) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedItems(func(domain.InventoryItem) bool { return true }), nil
}

func (s *memStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories, nil
}

func (s *memStore) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	s.items[item.ID] = item
	return item.ID, nil
}

func (s *memStore) UpdateInventoryItem(ctx context.Context, id int64, item domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	item.ID = id
	s.items[id] = item
	return nil
}

func (s *memStore) DeleteInventoryItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.CheckoutTx) error) error {
	if s.beforeTx != nil {
		s.beforeTx()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[int64]domain.InventoryItem, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	orders, orderItems, nextID := len(s.orders), len(s.orderItems), s.nextID

	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.items = items
		s.orders = s.orders[:orders]
		s.orderItems = s.orderItems[:orderItems]
		s.nextID = nextID
		return err
	}
	return nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) CreateOrder(ctx context.Context, order domain.Order) (int64, error) {
	t.s.nextID++
	order.ID = t.s.nextID
	t.s.orders = append(t.s.orders, order)
	return order.ID, nil
}

func (t *memTx) CreateOrderItems(ctx context.Context, items []domain.OrderItem) error {
	if t.s.failOrderItems != nil {
		return t.s.failOrderItems
	}
	t.s.orderItems = append(t.s.orderItems, items...)
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, inventoryID int64, quantity int, at time.Time) (bool, error) {
	item, ok := t.s.items[inventoryID]
	if !ok || item.Quantity < quantity {
		return false, nil
	}
	item.Quantity -= quantity
	item.UpdatedAt = at
	t.s.items[inventoryID] = item
	return true, nil
}

func (s *memStore) ListOrderTotals(ctx context.Context) ([]domain.OrderTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salesCalls++
	if s.failSales != nil {
		return nil, s.failSales
	}
	var totals []domain.OrderTotal
	for _, o := range s.orders {
		totals = append(totals, domain.OrderTotal{ID: o.ID, TotalAmount: o.TotalAmount, PaymentMethod: o.PaymentMethod})
	}
	return totals, nil
}

func (s *memStore) ListSoldItems(ctx context.Context) ([]domain.SoldItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sold []domain.SoldItem
	for _, oi := range s.orderItems {
		sold = append(sold, domain.SoldItem{InventoryID: oi.InventoryID, Quantity: oi.Quantity, Name: s.items[oi.InventoryID].Name})
	}
	return sold, nil
}

func (s *memStore) ListLowStock(ctx context.Context, threshold int) ([]domain.LowStockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var low []domain.LowStockItem
	for _, item := range s.items {
		if item.Quantity < threshold {
			low = append(low, domain.LowStockItem{Name: item.Name, Quantity: item.Quantity})
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Quantity < low[j].Quantity })
	return low, nil
}

func (s *memStore) CreateUser(ctx context.Context, profile domain.Profile, passwordHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.profile.Email == profile.Email {
			return domain.ErrEmailTaken
		}
	}
	s.users[profile.ID] = memUser{profile: profile, hash: passwordHash}
	return nil
}

func (s *memStore) FindCredentials(ctx context.Context, email string) (*domain.Profile, []byte, error) {
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

func (s *memStore) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	p := u.profile
	return &p, nil
}

// mockCartRepo stores carts as JSON, the way the Redis adapter does.
type mockCartRepo struct {
	mu      sync.Mutex
	carts   map[string][]byte
	locks   map[string]string
	failGet error

	// onLoad, when set, runs before LoadCart reads the cart.
	onLoad func()
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{
		carts: make(map[string][]byte),
		locks: make(map[string]string),
	}
}

func (m *mockCartRepo) LoadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if m.onLoad != nil {
		m.onLoad()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(sessionID)
}

func (m *mockCartRepo) load(sessionID string) (*domain.Cart, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	data, ok := m.carts[sessionID]
	if !ok {
		return nil, nil
	}
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (m *mockCartRepo) SaveCart(ctx context.Context, sessionID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = data
	return nil
}

func (m *mockCartRepo) UpdateCart(ctx context.Context, sessionID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[sessionID]; held {
		return nil, domain.ErrCommitInProgress
	}
	cart, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = domain.NewCart()
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return nil, err
	}
	m.carts[sessionID] = data
	return cart, nil
}

func (m *mockCartRepo) AcquireCommitLock(ctx context.Context, sessionID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[sessionID]; held {
		return false, nil
	}
	m.locks[sessionID] = token
	return true, nil
}

func (m *mockCartRepo) ReleaseCommitLock(ctx context.Context, sessionID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[sessionID] == token {
		delete(m.locks, sessionID)
	}
	return nil
}

func (m *mockCartRepo) CommitInProgress(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[sessionID]
	return held, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderCommitted
	err    error
}

func (p *recordingPublisher) PublishOrderCommitted(ctx context.Context, event domain.OrderCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type mockSummaryCache struct {
	mu          sync.Mutex
	summary     *domain.SalesSummary
	gets        int
	sets        int
	invalidates int
	failGet     bool
}

var errCacheDown = errors.New("cache down")

func (m *mockSummaryCache) GetSummary(ctx context.Context) (*domain.SalesSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failGet {
		return nil, errCacheDown
	}
	return m.summary, nil
}

func (m *mockSummaryCache) SetSummary(ctx context.Context, summary *domain.SalesSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.summary = summary
	return nil
}

func (m *mockSummaryCache) InvalidateSummary(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidates++
	m.summary = nil
	return nil
}
