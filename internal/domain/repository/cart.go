package repository

import (
	"context"

	"github.com/polkiloo/eshop/internal/domain/model"
)

// CartRepository exposes the cart subsystem to checkout: read and clear only.
type CartRepository interface {
	ItemsByUser(ctx context.Context, userID int64) ([]model.CartItem, error)
	Clear(ctx context.Context, userID int64) error
}
