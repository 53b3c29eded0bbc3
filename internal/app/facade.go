package app

import (
	"context"

	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/usecase"
)

// CheckoutFacade aggregates checkout operations for transport and workers.
type CheckoutFacade struct {
	checkout *usecase.CheckoutUseCase
}

// NewCheckoutFacade constructs CheckoutFacade.
func NewCheckoutFacade(checkout *usecase.CheckoutUseCase) *CheckoutFacade {
	return &CheckoutFacade{checkout: checkout}
}

func (f *CheckoutFacade) InitializeCheckout(ctx context.Context, userID int64) (*usecase.CheckoutResult, error) {
	return f.checkout.InitializeCheckout(ctx, userID)
}

func (f *CheckoutFacade) CompleteCheckout(ctx context.Context, sessionID string) (*model.Order, error) {
	return f.checkout.CompleteCheckout(ctx, sessionID)
}

func (f *CheckoutFacade) CancelCheckout(ctx context.Context, sessionID string) error {
	return f.checkout.CancelCheckout(ctx, sessionID)
}

func (f *CheckoutFacade) StaleOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return f.checkout.StaleOrders(ctx, limit)
}

func (f *CheckoutFacade) ReconcileStaleOrder(ctx context.Context, order model.Order) error {
	return f.checkout.ReconcileStaleOrder(ctx, order)
}
