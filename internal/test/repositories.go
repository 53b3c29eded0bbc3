package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/eshop/internal/domain/errors"
	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	Users map[int64]*model.User
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized map.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{Users: make(map[int64]*model.User)}
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// CartRepositoryStub serves cart contents from memory.
type CartRepositoryStub struct {
	Items    map[int64][]model.CartItem
	ItemsErr error
	ClearErr error
	Cleared  []int64
}

// NewCartRepositoryStub constructs stub repository with initialized map.
func NewCartRepositoryStub() *CartRepositoryStub {
	return &CartRepositoryStub{Items: make(map[int64][]model.CartItem)}
}

// ItemsByUser returns configured cart lines.
func (s *CartRepositoryStub) ItemsByUser(ctx context.Context, userID int64) ([]model.CartItem, error) {
	if s.ItemsErr != nil {
		return nil, s.ItemsErr
	}
	return s.Items[userID], nil
}

// Clear records clear invocations.
func (s *CartRepositoryStub) Clear(ctx context.Context, userID int64) error {
	if s.ClearErr != nil {
		return s.ClearErr
	}
	s.Cleared = append(s.Cleared, userID)
	return nil
}

// ProductRepositoryStub records stock restorations.
type ProductRepositoryStub struct {
	RestoreErr error
	Restored   [][]model.OrderItem
}

// RestoreStock tracks restored items or returns configured error.
func (s *ProductRepositoryStub) RestoreStock(ctx context.Context, items []model.OrderItem) error {
	if s.RestoreErr != nil {
		return s.RestoreErr
	}
	s.Restored = append(s.Restored, items)
	return nil
}

// OrderUpdateCall stores information about UpdateStatus invocations.
type OrderUpdateCall struct {
	OrderID int64
	Status  model.OrderStatus
}

// OrderRepositoryStub allows tests to customize behaviour.
type OrderRepositoryStub struct {
	GetBySessionFn func(context.Context, string) (*model.Order, error)
	SetSessionFn   func(context.Context, int64, string) error
	MarkCapturedFn func(context.Context, int64, time.Time) error
	UpdateStatusFn func(context.Context, int64, model.OrderStatus) error
	FindPendingFn  func(context.Context, time.Time, int) ([]model.Order, error)

	Orders      []model.Order
	Sessions    map[int64]string
	Captured    []int64
	Cancelled   []int64
	UpdateCalls []OrderUpdateCall
	Pending     []model.Order
}

// NewOrderRepositoryStub constructs stub repository with initialized map.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{Sessions: make(map[int64]string)}
}

// GetByPayPalOrderID returns matched order either via override or stored slice.
func (s *OrderRepositoryStub) GetByPayPalOrderID(ctx context.Context, paypalOrderID string) (*model.Order, error) {
	if s.GetBySessionFn != nil {
		return s.GetBySessionFn(ctx, paypalOrderID)
	}
	for _, o := range s.Orders {
		if o.PayPalOrderID != nil && *o.PayPalOrderID == paypalOrderID {
			order := o
			return &order, nil
		}
	}
	return nil, domainErrors.ErrOrderNotFound
}

// SetPayPalOrderID records session references.
func (s *OrderRepositoryStub) SetPayPalOrderID(ctx context.Context, orderID int64, paypalOrderID string) error {
	if s.SetSessionFn != nil {
		return s.SetSessionFn(ctx, orderID, paypalOrderID)
	}
	if s.Sessions == nil {
		s.Sessions = make(map[int64]string)
	}
	s.Sessions[orderID] = paypalOrderID
	return nil
}

// MarkCaptured records capture invocations.
func (s *OrderRepositoryStub) MarkCaptured(ctx context.Context, orderID int64, capturedAt time.Time) error {
	if s.MarkCapturedFn != nil {
		return s.MarkCapturedFn(ctx, orderID, capturedAt)
	}
	s.Captured = append(s.Captured, orderID)
	return nil
}

// MarkCancelled records cancellation invocations.
func (s *OrderRepositoryStub) MarkCancelled(ctx context.Context, orderID int64) error {
	s.Cancelled = append(s.Cancelled, orderID)
	return nil
}

// UpdateStatus records update invocations.
func (s *OrderRepositoryStub) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, orderID, status)
	}
	s.UpdateCalls = append(s.UpdateCalls, OrderUpdateCall{OrderID: orderID, Status: status})
	return nil
}

// FindPendingOlderThan returns the configured stale batch.
func (s *OrderRepositoryStub) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	if s.FindPendingFn != nil {
		return s.FindPendingFn(ctx, cutoff, limit)
	}
	if limit < len(s.Pending) {
		return s.Pending[:limit], nil
	}
	return s.Pending, nil
}

// CheckoutUnitOfWorkStub runs checkout transactions against an in-memory
// product table. Stock changes are discarded when fn fails, mirroring a
// database rollback. Transactions run one at a time, the way FOR UPDATE row
// locks serialize them in the database.
type CheckoutUnitOfWorkStub struct {
	mu         sync.Mutex
	Products   map[int64]*model.Product
	LockErr    error
	LockErrors int
	UpdateErr  error
	InsertErr  error
	ExecuteErr error

	NextOrderID int64
	Inserted    []*model.Order
	LockCalls   int
}

// NewCheckoutUnitOfWorkStub constructs stub with initialized product table.
func NewCheckoutUnitOfWorkStub() *CheckoutUnitOfWorkStub {
	return &CheckoutUnitOfWorkStub{
		Products:    make(map[int64]*model.Product),
		NextOrderID: 1,
	}
}

// Execute runs fn against a snapshot of the product table, committing the
// snapshot back only on success.
func (s *CheckoutUnitOfWorkStub) Execute(ctx context.Context, fn func(tx repository.CheckoutTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ExecuteErr != nil {
		return s.ExecuteErr
	}

	snapshot := make(map[int64]*model.Product, len(s.Products))
	for id, p := range s.Products {
		copied := *p
		snapshot[id] = &copied
	}

	tx := &checkoutTxStub{uow: s, products: snapshot}
	if err := fn(tx); err != nil {
		return err
	}

	s.Products = snapshot
	return nil
}

type checkoutTxStub struct {
	uow      *CheckoutUnitOfWorkStub
	products map[int64]*model.Product
}

func (t *checkoutTxStub) LockProductsForUpdate(ctx context.Context, ids []int64, timeout time.Duration) ([]model.Product, error) {
	t.uow.LockCalls++
	if t.uow.LockErr != nil {
		if t.uow.LockErrors == 0 || t.uow.LockCalls <= t.uow.LockErrors {
			return nil, t.uow.LockErr
		}
	}

	products := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := t.products[id]; ok {
			products = append(products, *p)
		}
	}
	return products, nil
}

func (t *checkoutTxStub) UpdateProductStocks(ctx context.Context, products []model.Product) error {
	if t.uow.UpdateErr != nil {
		return t.uow.UpdateErr
	}
	for i := range products {
		p := products[i]
		t.products[p.ID] = &p
	}
	return nil
}

func (t *checkoutTxStub) InsertOrder(ctx context.Context, order *model.Order) error {
	if t.uow.InsertErr != nil {
		return t.uow.InsertErr
	}
	order.ID = t.uow.NextOrderID
	t.uow.NextOrderID++
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	t.uow.Inserted = append(t.uow.Inserted, order)
	return nil
}
