package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/port"
)

// MySQL server error numbers mapped to constraint kinds.
const (
	errDBAccessDenied       = 1044
	errDupEntry             = 1062
	errTableAccessDenied    = 1142
	errSpecificAccessDenied = 1227
	errBadNull              = 1048
	errNoDefaultForField    = 1364
	errNoReferencedRow      = 1452
)

//go:embed schema.sql
var schema string

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates any missing tables.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const inventoryColumns = `i.id, i.name, i.brand, i.category_id, i.size, i.price, i.cost,
	i.quantity, i.min_stock, i.created_at, i.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInventoryItem(row rowScanner, extra ...interface{}) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	dest := []interface{}{
		&item.ID, &item.Name, &item.Brand, &item.CategoryID, &item.Size, &item.Price, &item.Cost,
		&item.Quantity, &item.MinStock, &item.CreatedAt, &item.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return item, err
}

func (m *MySQLAdapter) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	item, err := scanInventoryItem(m.db.QueryRowContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory i WHERE i.id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &item, nil
}

func (m *MySQLAdapter) ListAvailableInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory i
		WHERE i.quantity > 0
		ORDER BY i.name, i.id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	items := []domain.InventoryItem{}
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+inventoryColumns+`, c.id, c.name, c.description
		FROM inventory i
		LEFT JOIN categories c ON c.id = i.category_id
		ORDER BY i.name, i.id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	items := []domain.InventoryItem{}
	for rows.Next() {
		var (
			catID   sql.NullInt64
			catName sql.NullString
			catDesc sql.NullString
		)
		item, err := scanInventoryItem(rows, &catID, &catName, &catDesc)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		if catID.Valid {
			item.Category = &domain.Category{ID: catID.Int64, Name: catName.String, Description: catDesc.String}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var (
			c    domain.Category
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &desc); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Description = desc.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (m *MySQLAdapter) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (name, brand, category_id, size, price, cost, quantity, min_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Brand, item.CategoryID, item.Size, item.Price, item.Cost,
		item.Quantity, item.MinStock, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert inventory: %w", mapWriteError(err))
	}
	return result.LastInsertId()
}

func (m *MySQLAdapter) UpdateInventoryItem(ctx context.Context, id int64, item domain.InventoryItem) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET name = ?, brand = ?, category_id = ?, size = ?, price = ?, cost = ?,
			quantity = ?, min_stock = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.Brand, item.CategoryID, item.Size, item.Price, item.Cost,
		item.Quantity, item.MinStock, item.UpdatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", mapWriteError(err))
	}
	return requireRow(result)
}

func (m *MySQLAdapter) DeleteInventoryItem(ctx context.Context, id int64) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete inventory: %w", mapWriteError(err))
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// WithinTx runs fn in one transaction. Any error from fn rolls back every write.
func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.CheckoutTx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type checkoutTx struct {
	tx *sql.Tx
}

func (c *checkoutTx) CreateOrder(ctx context.Context, order domain.Order) (int64, error) {
	result, err := c.tx.ExecContext(ctx, `
		INSERT INTO orders (customer_name, total_amount, payment_method, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		nullString(order.CustomerName), order.TotalAmount, order.PaymentMethod,
		nullString(order.CreatedBy), order.CreatedAt,
	)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return result.LastInsertId()
}

func (c *checkoutTx) CreateOrderItems(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(items)*5)
	for _, item := range items {
		args = append(args, item.OrderID, item.InventoryID, item.Quantity, item.Price, item.Subtotal)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("(?, ?, ?, ?, ?),", len(items)), ",")

	_, err := c.tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, inventory_id, quantity, price, subtotal)
		VALUES `+placeholders, args...)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (c *checkoutTx) DecrementStock(ctx context.Context, inventoryID int64, quantity int, at time.Time) (bool, error) {
	result, err := c.tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - ?, updated_at = ?
		WHERE id = ? AND quantity >= ?`,
		quantity, at, inventoryID, quantity,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (m *MySQLAdapter) ListOrderTotals(ctx context.Context) ([]domain.OrderTotal, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, total_amount, payment_method FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.OrderTotal
	for rows.Next() {
		var o domain.OrderTotal
		if err := rows.Scan(&o.ID, &o.TotalAmount, &o.PaymentMethod); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (m *MySQLAdapter) ListSoldItems(ctx context.Context) ([]domain.SoldItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT oi.inventory_id, oi.quantity, i.name
		FROM order_items oi
		LEFT JOIN inventory i ON i.id = oi.inventory_id
		ORDER BY oi.id`)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var sold []domain.SoldItem
	for rows.Next() {
		var (
			s    domain.SoldItem
			name sql.NullString
		)
		if err := rows.Scan(&s.InventoryID, &s.Quantity, &name); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		s.Name = name.String
		sold = append(sold, s)
	}
	return sold, rows.Err()
}

func (m *MySQLAdapter) ListLowStock(ctx context.Context, threshold int) ([]domain.LowStockItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT name, quantity FROM inventory
		WHERE quantity < ?
		ORDER BY quantity ASC, id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	defer rows.Close()

	var items []domain.LowStockItem
	for rows.Next() {
		var item domain.LowStockItem
		if err := rows.Scan(&item.Name, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, profile domain.Profile, passwordHash []byte) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`,
		profile.ID, profile.Email, passwordHash,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == errDupEntry {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", mapWriteError(err))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, name, role) VALUES (?, ?, ?)`,
		profile.ID, profile.Name, string(profile.Role),
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", mapWriteError(err))
	}

	return tx.Commit()
}

func (m *MySQLAdapter) FindCredentials(ctx context.Context, email string) (*domain.Profile, []byte, error) {
	var (
		p    domain.Profile
		role string
		hash []byte
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.password_hash, p.name, p.role
		FROM users u JOIN profiles p ON p.id = u.id
		WHERE u.email = ?`, email,
	).Scan(&p.ID, &p.Email, &hash, &p.Name, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query credentials: %w", err)
	}
	p.Role = domain.Role(role)
	return &p, hash, nil
}

func (m *MySQLAdapter) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var (
		p    domain.Profile
		role string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, p.name, p.role
		FROM users u JOIN profiles p ON p.id = u.id
		WHERE u.id = ?`, id,
	).Scan(&p.ID, &p.Email, &p.Name, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.Role = domain.Role(role)
	return &p, nil
}

// mapWriteError turns known MySQL constraint failures into a domain.ConstraintError.
// Other errors are returned unchanged.
func mapWriteError(err error) error {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return err
	}

	switch mysqlErr.Number {
	case errDBAccessDenied, errTableAccessDenied, errSpecificAccessDenied:
		return domain.NewConstraintError(domain.ConstraintPermission, err)
	case errNoReferencedRow:
		return domain.NewConstraintError(domain.ConstraintForeignKey, err)
	case errBadNull, errNoDefaultForField:
		return domain.NewConstraintError(domain.ConstraintNotNull, err)
	case errDupEntry:
		return domain.NewConstraintError(domain.ConstraintDuplicate, err)
	default:
		return err
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
