package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/polkiloo/eshop/internal/domain/model"
)

// StaleOrders returns pending orders older than the configured cutoff, up to
// limit, for the reconciliation sweep.
func (u *CheckoutUseCase) StaleOrders(ctx context.Context, limit int) ([]model.Order, error) {
	cutoff := time.Now().Add(-u.staleAfter)
	return u.orders.FindPendingOlderThan(ctx, cutoff, limit)
}

// ReconcileStaleOrder resolves one pending order whose remote payment state
// may have drifted from local assumptions. Each call is independent: a
// failure here must not affect other orders in the same sweep.
func (u *CheckoutUseCase) ReconcileStaleOrder(ctx context.Context, order model.Order) error {
	expired := time.Since(order.CreatedAt) > u.expireAfter

	if order.PayPalOrderID == nil || *order.PayPalOrderID == "" {
		u.logger.Warn("stale pending order has no payment session, cancelling",
			slog.String("number", order.Number))
		return u.cancelOrder(ctx, &order)
	}
	sessionID := *order.PayPalOrderID

	status, err := u.gateway.GetStatus(ctx, sessionID)
	if err != nil {
		if expired {
			u.logger.Warn("payment status unobtainable past hard limit, expiring order",
				slog.String("number", order.Number))
			return u.expireOrder(ctx, &order)
		}
		u.logger.Error("payment status unavailable, retaining for next sweep",
			slog.String("number", order.Number),
			slog.String("error", err.Error()),
		)
		return nil
	}

	switch status {
	case model.PaymentStatusApproved:
		return u.captureApprovedStaleOrder(ctx, &order, sessionID)
	case model.PaymentStatusVoided, model.PaymentStatusCompleted, model.PaymentStatusDenied:
		// Terminal on the remote side with no local record of payment.
		u.logger.Info("payment session terminal on remote side, cancelling locally",
			slog.String("number", order.Number),
			slog.String("remote_status", string(status)),
		)
		return u.cancelOrder(ctx, &order)
	default:
		if expired {
			u.logger.Warn("order past hard limit with ambiguous payment status, expiring",
				slog.String("number", order.Number),
				slog.String("remote_status", string(status)),
			)
			return u.expireOrder(ctx, &order)
		}
		u.logger.Warn("ambiguous payment status, retaining for next sweep",
			slog.String("number", order.Number),
			slog.String("remote_status", string(status)),
		)
		return nil
	}
}

func (u *CheckoutUseCase) captureApprovedStaleOrder(ctx context.Context, order *model.Order, sessionID string) error {
	if _, err := u.gateway.Capture(ctx, sessionID); err != nil {
		// Capture failed even though the session was approved; payment may
		// have moved and may still be captured manually.
		u.logger.Error("CRITICAL: capture failed for approved order",
			slog.String("number", order.Number),
			slog.String("error", err.Error()),
		)
		return u.orders.UpdateStatus(ctx, order.ID, model.OrderStatusManualReview)
	}

	now := time.Now().Truncate(time.Second)
	if err := u.orders.MarkCaptured(ctx, order.ID, now); err != nil {
		return err
	}
	if err := u.carts.Clear(ctx, order.UserID); err != nil {
		u.logger.Error("failed to clear cart after reconciled capture",
			slog.Int64("user_id", order.UserID),
			slog.String("error", err.Error()),
		)
	}
	u.logger.Info("stale order captured and finalized", slog.String("number", order.Number))
	return nil
}

// expireOrder writes off an unresolvable order: the judgment call is that
// money never moved, so the inventory reservation is returned.
func (u *CheckoutUseCase) expireOrder(ctx context.Context, order *model.Order) error {
	if err := u.orders.UpdateStatus(ctx, order.ID, model.OrderStatusExpired); err != nil {
		return err
	}
	u.rollbackInventory(ctx, order)
	return nil
}
