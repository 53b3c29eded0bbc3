package repository

import (
	"context"

	"github.com/polkiloo/eshop/internal/domain/model"
)

// ProductRepository covers stock mutations outside the checkout transaction.
type ProductRepository interface {
	// RestoreStock adds the reserved quantities back to product stock in a
	// single transaction, reversing the decrement made at order creation.
	RestoreStock(ctx context.Context, items []model.OrderItem) error
}
