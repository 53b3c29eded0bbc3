package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/eshop/internal/domain/errors"
	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/domain/repository"
)

// Postgres error codes surfaced by bounded lock acquisition.
const (
	pgCodeLockNotAvailable = "55P03"
	pgCodeDeadlockDetected = "40P01"
)

// Pool is the subset of pgxpool.Pool used by the storage. Declared as an
// interface so tests can substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   Pool
	logger *slog.Logger
}

type userRepository struct {
	storage *Storage
}

type productRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

type cartRepository struct {
	storage *Storage
}

type checkoutUnitOfWork struct {
	storage *Storage
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (Pool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Products() repository.ProductRepository {
	return &productRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Carts() repository.CartRepository {
	return &cartRepository{storage: s}
}

func (s *Storage) Checkout() repository.CheckoutUnitOfWork {
	return &checkoutUnitOfWork{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            shipping_address TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS products (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            price NUMERIC(10,2) NOT NULL,
            stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        )`,
		`CREATE TABLE IF NOT EXISTS cart_items (
            user_id BIGINT NOT NULL REFERENCES users(id),
            product_id BIGINT NOT NULL REFERENCES products(id),
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            PRIMARY KEY (user_id, product_id)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id),
            number TEXT UNIQUE NOT NULL,
            status TEXT NOT NULL,
            subtotal NUMERIC(10,2) NOT NULL,
            discount NUMERIC(10,2) NOT NULL DEFAULT 0,
            shipping_cost NUMERIC(10,2) NOT NULL DEFAULT 0,
            tax NUMERIC(10,2) NOT NULL DEFAULT 0,
            grand_total NUMERIC(10,2) NOT NULL,
            shipping_address TEXT NOT NULL,
            paypal_order_id TEXT UNIQUE,
            payment_captured_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            product_id BIGINT NOT NULL REFERENCES products(id),
            product_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            unit_price NUMERIC(10,2) NOT NULL,
            line_total NUMERIC(10,2) NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_pending ON orders(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- UserRepository implementation ---

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT id, first_name, last_name, shipping_address FROM users WHERE id=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.ShippingAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- CartRepository implementation ---

func (r *cartRepository) ItemsByUser(ctx context.Context, userID int64) ([]model.CartItem, error) {
	const query = `SELECT product_id, quantity FROM cart_items WHERE user_id=$1 ORDER BY product_id`
	rows, err := r.storage.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *cartRepository) Clear(ctx context.Context, userID int64) error {
	const query = `DELETE FROM cart_items WHERE user_id=$1`
	_, err := r.storage.pool.Exec(ctx, query, userID)
	return err
}

// --- ProductRepository implementation ---

func (r *productRepository) RestoreStock(ctx context.Context, items []model.OrderItem) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE products SET stock = stock + $1 WHERE id=$2`
		for _, item := range items {
			if _, err := tx.Exec(ctx, query, item.Quantity, item.ProductID); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- OrderRepository implementation ---

const orderColumns = `id, user_id, number, status, subtotal, discount, shipping_cost, tax,
                      grand_total, shipping_address, paypal_order_id, payment_captured_at,
                      created_at, updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.Number, &o.Status, &o.Subtotal, &o.Discount,
		&o.ShippingCost, &o.Tax, &o.GrandTotal, &o.ShippingAddress, &o.PayPalOrderID,
		&o.PaymentCapturedAt, &o.CreatedAt, &o.UpdatedAt)
}

func (r *orderRepository) GetByPayPalOrderID(ctx context.Context, paypalOrderID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE paypal_order_id=$1`
	var order model.Order
	if err := scanOrder(r.storage.pool.QueryRow(ctx, query, paypalOrderID), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	const query = `SELECT id, order_id, product_id, product_name, quantity, unit_price, line_total
                   FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) SetPayPalOrderID(ctx context.Context, orderID int64, paypalOrderID string) error {
	const query = `UPDATE orders SET paypal_order_id=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.storage.pool.Exec(ctx, query, paypalOrderID, orderID)
	return err
}

func (r *orderRepository) MarkCaptured(ctx context.Context, orderID int64, capturedAt time.Time) error {
	const query = `UPDATE orders SET status=$1, payment_captured_at=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.storage.pool.Exec(ctx, query, model.OrderStatusProcessing, capturedAt, orderID)
	return err
}

func (r *orderRepository) MarkCancelled(ctx context.Context, orderID int64) error {
	const query = `UPDATE orders SET status=$1, paypal_order_id=NULL, updated_at=NOW() WHERE id=$2`
	_, err := r.storage.pool.Exec(ctx, query, model.OrderStatusCancelled, orderID)
	return err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	const query = `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.storage.pool.Exec(ctx, query, status, orderID)
	return err
}

func (r *orderRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
              WHERE status=$1 AND created_at < $2
              ORDER BY created_at
              LIMIT $3`
	rows, err := r.storage.pool.Query(ctx, query, model.OrderStatusPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// --- CheckoutUnitOfWork implementation ---

type checkoutTx struct {
	tx pgx.Tx
}

func (u *checkoutUnitOfWork) Execute(ctx context.Context, fn func(tx repository.CheckoutTx) error) error {
	return u.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&checkoutTx{tx: tx})
	})
}

// LockProductsForUpdate sets a transaction-scoped lock wait timeout and takes
// exclusive row locks on all listed products. Rows are locked in id order so
// concurrent checkouts touching overlapping carts cannot deadlock each other.
func (t *checkoutTx) LockProductsForUpdate(ctx context.Context, ids []int64, timeout time.Duration) ([]model.Product, error) {
	timeoutMs := timeout.Milliseconds()
	if timeoutMs <= 0 {
		timeoutMs = 1
	}
	// SET does not accept bind parameters; the value is a formatted integer.
	if _, err := t.tx.Exec(ctx, fmt.Sprintf(`SET LOCAL lock_timeout = %d`, timeoutMs)); err != nil {
		return nil, err
	}

	const query = `SELECT id, name, price, stock, is_active FROM products
                   WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := t.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, mapLockError(err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsActive); err != nil {
			return nil, mapLockError(err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapLockError(err)
	}
	return products, nil
}

func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgCodeLockNotAvailable || pgErr.Code == pgCodeDeadlockDetected) {
		return domainErrors.ErrLockTimeout
	}
	return err
}

func (t *checkoutTx) UpdateProductStocks(ctx context.Context, products []model.Product) error {
	const query = `UPDATE products SET stock=$1 WHERE id=$2`
	for _, p := range products {
		if _, err := t.tx.Exec(ctx, query, p.Stock, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, order *model.Order) error {
	const insertOrder = `INSERT INTO orders (user_id, number, status, subtotal, discount,
                             shipping_cost, tax, grand_total, shipping_address)
                         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                         RETURNING id, created_at, updated_at`
	err := t.tx.QueryRow(ctx, insertOrder, order.UserID, order.Number, order.Status,
		order.Subtotal, order.Discount, order.ShippingCost, order.Tax,
		order.GrandTotal, order.ShippingAddress).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	const insertItem = `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, line_total)
                        VALUES ($1, $2, $3, $4, $5, $6)
                        RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := t.tx.QueryRow(ctx, insertItem, order.ID, item.ProductID, item.ProductName,
			item.Quantity, item.UnitPrice, item.LineTotal).Scan(&item.ID); err != nil {
			return err
		}
	}
	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
