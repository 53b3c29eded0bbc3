package repository

import (
	"context"

	"github.com/polkiloo/eshop/internal/domain/model"
)

// UserRepository resolves user profile data needed by checkout.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}
