package repository

import (
	"context"
	"time"

	"github.com/polkiloo/eshop/internal/domain/model"
)

// CheckoutTx exposes the store operations available inside one checkout
// transaction. Locks are held until the transaction commits or rolls back.
type CheckoutTx interface {
	// LockProductsForUpdate takes exclusive row locks on all listed products,
	// bounded by timeout. Returns only the rows that exist; acquiring a
	// partial set of locks is not possible.
	LockProductsForUpdate(ctx context.Context, ids []int64, timeout time.Duration) ([]model.Product, error)
	UpdateProductStocks(ctx context.Context, products []model.Product) error
	InsertOrder(ctx context.Context, order *model.Order) error
}

// CheckoutUnitOfWork runs an order build inside a single transaction. Any
// error from fn rolls the whole transaction back.
type CheckoutUnitOfWork interface {
	Execute(ctx context.Context, fn func(tx CheckoutTx) error) error
}
