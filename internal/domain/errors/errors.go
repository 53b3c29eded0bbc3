package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrCartEmpty              = errors.New("cart is empty")
	ErrShippingAddressMissing = errors.New("shipping address missing")
	ErrInvalidState           = errors.New("order is not in a valid state for this operation")
	ErrLockTimeout            = errors.New("could not acquire product locks in time")
)

// ProductNotFoundError carries the cart product ids missing from the catalog.
type ProductNotFoundError struct {
	IDs []int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("products not found: %v", e.IDs)
}

// ProductNotAvailableError indicates a product was deactivated while in a cart.
type ProductNotAvailableError struct {
	ID int64
}

func (e *ProductNotAvailableError) Error() string {
	return fmt.Sprintf("product %d is not available", e.ID)
}

// InsufficientStockError carries the stock remaining for the offending product.
type InsufficientStockError struct {
	ID        int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ID, e.Requested, e.Available)
}

// PaymentError wraps a failed call to the payment provider. Callers must not
// assume a failed capture means no money moved.
type PaymentError struct {
	Op    string
	Cause error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment %s failed: %v", e.Op, e.Cause)
}

func (e *PaymentError) Unwrap() error { return e.Cause }

// PaymentCaptureError signals that capture failed after the session was
// approved. The order number is included for operator follow-up.
type PaymentCaptureError struct {
	OrderNumber string
	Cause       error
}

func (e *PaymentCaptureError) Error() string {
	return fmt.Sprintf("payment capture failed for order %s: %v", e.OrderNumber, e.Cause)
}

func (e *PaymentCaptureError) Unwrap() error { return e.Cause }

// CheckoutError reports a checkout that failed as a whole with no usable
// payment session.
type CheckoutError struct {
	UserID int64
	Cause  error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout failed for user %d: %v", e.UserID, e.Cause)
}

func (e *CheckoutError) Unwrap() error { return e.Cause }
