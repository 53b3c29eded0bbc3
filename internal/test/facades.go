package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/usecase"
)

// GatewayStub simulates the remote payment provider.
type GatewayStub struct {
	CreateOrderFn func(context.Context, *model.Order, string) (*model.PaymentSession, error)
	CaptureFn     func(context.Context, string) (model.PaymentSessionStatus, error)
	GetStatusFn   func(context.Context, string) (model.PaymentSessionStatus, error)

	Created  []string
	Captured []string
}

// CreateOrder delegates to provided function or returns a default session.
func (s *GatewayStub) CreateOrder(ctx context.Context, order *model.Order, payerName string) (*model.PaymentSession, error) {
	s.Created = append(s.Created, order.Number)
	if s.CreateOrderFn != nil {
		return s.CreateOrderFn(ctx, order, payerName)
	}
	return &model.PaymentSession{
		ID:          "PAY-" + order.Number,
		ApprovalURL: "https://paypal.test/approve/" + order.Number,
	}, nil
}

// Capture records capture requests and returns configured status.
func (s *GatewayStub) Capture(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error) {
	s.Captured = append(s.Captured, sessionID)
	if s.CaptureFn != nil {
		return s.CaptureFn(ctx, sessionID)
	}
	return model.PaymentStatusCompleted, nil
}

// GetStatus returns configured remote session status.
func (s *GatewayStub) GetStatus(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error) {
	if s.GetStatusFn != nil {
		return s.GetStatusFn(ctx, sessionID)
	}
	return model.PaymentStatusApproved, nil
}

// CheckoutFacadeStub provides controllable behaviour for checkout endpoints.
type CheckoutFacadeStub struct {
	InitializeFn func(context.Context, int64) (*usecase.CheckoutResult, error)
	CompleteFn   func(context.Context, string) (*model.Order, error)
	CancelFn     func(context.Context, string) error
}

// InitializeCheckout delegates to provided function or returns default result.
func (s CheckoutFacadeStub) InitializeCheckout(ctx context.Context, userID int64) (*usecase.CheckoutResult, error) {
	if s.InitializeFn != nil {
		return s.InitializeFn(ctx, userID)
	}
	return &usecase.CheckoutResult{
		OrderID:     1,
		OrderNumber: "n-1",
		ApprovalURL: "https://paypal.test/approve/n-1",
		GrandTotal:  decimal.RequireFromString("10.00"),
		Status:      model.OrderStatusPending,
	}, nil
}

// CompleteCheckout delegates to provided function or returns default order.
func (s CheckoutFacadeStub) CompleteCheckout(ctx context.Context, sessionID string) (*model.Order, error) {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, sessionID)
	}
	return &model.Order{ID: 1, Number: "n-1", Status: model.OrderStatusProcessing}, nil
}

// CancelCheckout executes configured cancel handler.
func (s CheckoutFacadeStub) CancelCheckout(ctx context.Context, sessionID string) error {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, sessionID)
	}
	return nil
}

// ReconcilerFacadeStub mimics worker interactions with the checkout facade.
type ReconcilerFacadeStub struct {
	Batches     [][]model.Order
	StaleFn     func(context.Context, int) ([]model.Order, error)
	ReconcileFn func(context.Context, model.Order) error

	Reconciled []model.Order
	mu         sync.Mutex
	callCount  int32
}

// Lock exposes internal mutex for external synchronization.
func (s *ReconcilerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *ReconcilerFacadeStub) Unlock() { s.mu.Unlock() }

// StaleOrders returns batches from configured queue.
func (s *ReconcilerFacadeStub) StaleOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if s.StaleFn != nil {
		return s.StaleFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.callCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ReconcileStaleOrder records processed orders.
func (s *ReconcilerFacadeStub) ReconcileStaleOrder(ctx context.Context, order model.Order) error {
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reconciled = append(s.Reconciled, order)
	return nil
}
