package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/eshop/internal/config"
	domainErrors "github.com/polkiloo/eshop/internal/domain/errors"
	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/domain/repository"
)

// PaymentGateway is the payment provider surface required by checkout.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, order *model.Order, payerName string) (*model.PaymentSession, error)
	Capture(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error)
	GetStatus(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error)
}

// CheckoutResult is returned to the caller of InitializeCheckout.
type CheckoutResult struct {
	OrderID     int64
	OrderNumber string
	ApprovalURL string
	GrandTotal  decimal.Decimal
	Status      model.OrderStatus
}

// CheckoutUseCase drives the full order lifecycle: build and reserve, open a
// remote payment session, capture, cancel, reconcile.
type CheckoutUseCase struct {
	users    repository.UserRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	carts    repository.CartRepository
	checkout repository.CheckoutUnitOfWork
	gateway  PaymentGateway
	logger   *slog.Logger

	shippingFee   decimal.Decimal
	taxRate       decimal.Decimal
	lockTimeout   time.Duration
	retryAttempts int
	retryBackoff  time.Duration
	staleAfter    time.Duration
	expireAfter   time.Duration
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(
	users repository.UserRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	carts repository.CartRepository,
	checkout repository.CheckoutUnitOfWork,
	gateway PaymentGateway,
	cfg *config.Config,
	logger *slog.Logger,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		users:         users,
		products:      products,
		orders:        orders,
		carts:         carts,
		checkout:      checkout,
		gateway:       gateway,
		logger:        logger,
		shippingFee:   cfg.ShippingFee,
		taxRate:       cfg.TaxRate,
		lockTimeout:   cfg.LockTimeout,
		retryAttempts: cfg.CheckoutRetryAttempts,
		retryBackoff:  cfg.CheckoutRetryBackoff,
		staleAfter:    cfg.StaleAfter,
		expireAfter:   cfg.ExpireAfter,
	}
}

// InitializeCheckout reserves inventory, persists a PENDING order and opens a
// remote payment session. The returned approval URL is where the user
// finishes the payment.
func (u *CheckoutUseCase) InitializeCheckout(ctx context.Context, userID int64) (*CheckoutResult, error) {
	order, user, err := u.buildOrderWithRetry(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.logger.Info("order created",
		slog.Int64("order_id", order.ID),
		slog.String("number", order.Number),
	)

	payerName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	session, err := u.gateway.CreateOrder(ctx, order, payerName)
	if err != nil {
		u.logger.Error("payment session creation failed",
			slog.String("number", order.Number),
			slog.String("error", err.Error()),
		)
		u.rollbackInventory(ctx, order)
		return nil, &domainErrors.CheckoutError{UserID: userID, Cause: err}
	}

	if err := u.orders.SetPayPalOrderID(ctx, order.ID, session.ID); err != nil {
		u.logger.Error("failed to store payment session reference",
			slog.String("number", order.Number),
			slog.String("error", err.Error()),
		)
		u.rollbackInventory(ctx, order)
		return nil, &domainErrors.CheckoutError{UserID: userID, Cause: err}
	}

	return &CheckoutResult{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		ApprovalURL: session.ApprovalURL,
		GrandTotal:  order.GrandTotal,
		Status:      order.Status,
	}, nil
}

// CompleteCheckout captures an approved payment session and finalizes the
// order. Safe to call twice for the same callback: an order already
// PROCESSING is returned as-is.
func (u *CheckoutUseCase) CompleteCheckout(ctx context.Context, sessionID string) (*model.Order, error) {
	order, err := u.orders.GetByPayPalOrderID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if order.Status == model.OrderStatusProcessing {
		u.logger.Info("order already processing, returning existing",
			slog.String("number", order.Number))
		return order, nil
	}
	if order.Status != model.OrderStatusPending {
		return nil, domainErrors.ErrInvalidState
	}

	status, err := u.gateway.GetStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if status != model.PaymentStatusApproved {
		u.logger.Warn("payment session not approved for capture",
			slog.String("number", order.Number),
			slog.String("remote_status", string(status)),
		)
		return nil, domainErrors.ErrInvalidState
	}

	if _, err := u.gateway.Capture(ctx, sessionID); err != nil {
		// Money may have moved: never roll back inventory here.
		if uerr := u.orders.UpdateStatus(ctx, order.ID, model.OrderStatusManualReview); uerr != nil {
			u.logger.Error("failed to flag order for manual review",
				slog.String("number", order.Number),
				slog.String("error", uerr.Error()),
			)
		}
		return nil, &domainErrors.PaymentCaptureError{OrderNumber: order.Number, Cause: err}
	}

	now := time.Now().Truncate(time.Second)
	if err := u.orders.MarkCaptured(ctx, order.ID, now); err != nil {
		return nil, err
	}
	if err := u.carts.Clear(ctx, order.UserID); err != nil {
		u.logger.Error("failed to clear cart after capture",
			slog.Int64("user_id", order.UserID),
			slog.String("error", err.Error()),
		)
	}

	order.Status = model.OrderStatusProcessing
	order.PaymentCapturedAt = &now
	u.logger.Info("order completed", slog.String("number", order.Number))
	return order, nil
}

// CancelCheckout cancels a still-pending order and returns its inventory.
// No-op for orders in any other state.
func (u *CheckoutUseCase) CancelCheckout(ctx context.Context, sessionID string) error {
	order, err := u.orders.GetByPayPalOrderID(ctx, sessionID)
	if err != nil {
		return err
	}
	return u.cancelOrder(ctx, order)
}

func (u *CheckoutUseCase) cancelOrder(ctx context.Context, order *model.Order) error {
	if order.Status != model.OrderStatusPending {
		u.logger.Info("cancel requested for non-pending order, skipping",
			slog.String("number", order.Number),
			slog.String("status", string(order.Status)),
		)
		return nil
	}

	u.rollbackInventory(ctx, order)
	if err := u.orders.MarkCancelled(ctx, order.ID); err != nil {
		return err
	}
	u.logger.Info("order cancelled", slog.String("number", order.Number))
	return nil
}

func (u *CheckoutUseCase) buildOrderWithRetry(ctx context.Context, userID int64) (*model.Order, *model.User, error) {
	for attempt := 1; ; attempt++ {
		order, user, err := u.buildOrder(ctx, userID)
		if err == nil {
			return order, user, nil
		}
		if !errors.Is(err, domainErrors.ErrLockTimeout) {
			return nil, nil, err
		}
		if attempt >= u.retryAttempts {
			return nil, nil, &domainErrors.CheckoutError{UserID: userID, Cause: err}
		}

		u.logger.Warn("lock contention during checkout, retrying",
			slog.Int64("user_id", userID),
			slog.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(u.retryBackoff):
		}
	}
}

// buildOrder validates the cart, locks the products, reserves stock and
// persists the PENDING order with its items inside one transaction.
func (u *CheckoutUseCase) buildOrder(ctx context.Context, userID int64) (*model.Order, *model.User, error) {
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	// An empty cart is reported before a missing address.
	cartItems, err := u.carts.ItemsByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(cartItems) == 0 {
		return nil, nil, domainErrors.ErrCartEmpty
	}
	if strings.TrimSpace(user.ShippingAddress) == "" {
		return nil, nil, domainErrors.ErrShippingAddressMissing
	}

	// Duplicate cart lines for the same product are summed, not rejected.
	quantities := make(map[int64]int, len(cartItems))
	for _, item := range cartItems {
		quantities[item.ProductID] += item.Quantity
	}
	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var order *model.Order
	err = u.checkout.Execute(ctx, func(tx repository.CheckoutTx) error {
		products, err := tx.LockProductsForUpdate(ctx, ids, u.lockTimeout)
		if err != nil {
			return err
		}

		if len(products) != len(ids) {
			found := make(map[int64]struct{}, len(products))
			for _, p := range products {
				found[p.ID] = struct{}{}
			}
			var missing []int64
			for _, id := range ids {
				if _, ok := found[id]; !ok {
					missing = append(missing, id)
				}
			}
			return &domainErrors.ProductNotFoundError{IDs: missing}
		}

		subtotal := decimal.Zero
		items := make([]model.OrderItem, 0, len(products))
		for i := range products {
			p := &products[i]
			qty := quantities[p.ID]

			if !p.IsActive {
				return &domainErrors.ProductNotAvailableError{ID: p.ID}
			}
			if p.Stock < qty {
				return &domainErrors.InsufficientStockError{ID: p.ID, Requested: qty, Available: p.Stock}
			}

			p.Stock -= qty
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))
			subtotal = subtotal.Add(lineTotal)

			items = append(items, model.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    qty,
				UnitPrice:   p.Price,
				LineTotal:   model.RoundMoney(lineTotal),
			})
		}

		if err := tx.UpdateProductStocks(ctx, products); err != nil {
			return err
		}

		shipping := model.RoundMoney(u.shippingFee)
		tax := model.RoundMoney(subtotal.Mul(u.taxRate))
		subtotal = model.RoundMoney(subtotal)
		grandTotal := subtotal.Add(shipping).Add(tax)

		order = &model.Order{
			UserID:          userID,
			Number:          uuid.NewString(),
			Status:          model.OrderStatusPending,
			Subtotal:        subtotal,
			Discount:        decimal.Zero,
			ShippingCost:    shipping,
			Tax:             tax,
			GrandTotal:      grandTotal,
			ShippingAddress: user.ShippingAddress,
			Items:           items,
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, nil, err
	}
	return order, user, nil
}

// rollbackInventory returns reserved stock in its own transaction. A failed
// rollback is logged as a critical alert and never re-thrown into the
// triggering flow.
func (u *CheckoutUseCase) rollbackInventory(ctx context.Context, order *model.Order) {
	if err := u.products.RestoreStock(ctx, order.Items); err != nil {
		u.logger.Error("ALERT: inventory rollback failed, manual review required",
			slog.String("number", order.Number),
			slog.String("error", err.Error()),
		)
		return
	}
	u.logger.Info("inventory rollback completed", slog.String("number", order.Number))
}
