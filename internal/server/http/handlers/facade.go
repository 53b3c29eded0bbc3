package handlers

import (
	"context"

	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/usecase"
)

// CheckoutFacade encapsulates checkout operations exposed via HTTP.
type CheckoutFacade interface {
	InitializeCheckout(ctx context.Context, userID int64) (*usecase.CheckoutResult, error)
	CompleteCheckout(ctx context.Context, sessionID string) (*model.Order, error)
	CancelCheckout(ctx context.Context, sessionID string) error
}
