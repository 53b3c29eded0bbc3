package repository

import (
	"context"
	"time"

	"github.com/polkiloo/eshop/internal/domain/model"
)

// OrderRepository describes persistence operations with orders outside the
// checkout transaction.
type OrderRepository interface {
	GetByPayPalOrderID(ctx context.Context, paypalOrderID string) (*model.Order, error)
	SetPayPalOrderID(ctx context.Context, orderID int64, paypalOrderID string) error
	// MarkCaptured moves the order to PROCESSING and records capture time.
	MarkCaptured(ctx context.Context, orderID int64, capturedAt time.Time) error
	// MarkCancelled moves the order to CANCELLED and clears the session reference.
	MarkCancelled(ctx context.Context, orderID int64) error
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
}
