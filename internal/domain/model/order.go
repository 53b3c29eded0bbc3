package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the scale applied to every monetary value in the system.
const MoneyScale = 2

// RoundMoney rounds a monetary value to two decimal places, half up.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyScale)
}

// OrderStatus describes checkout lifecycle.
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "PENDING"
	OrderStatusProcessing   OrderStatus = "PROCESSING"
	OrderStatusShipped      OrderStatus = "SHIPPED"
	OrderStatusDelivered    OrderStatus = "DELIVERED"
	OrderStatusManualReview OrderStatus = "MANUAL_REVIEW_PAYMENT"
	OrderStatusExpired      OrderStatus = "EXPIRED"
	OrderStatusCancelled    OrderStatus = "CANCELLED"
)

// Order is the checkout aggregate root. Items are created together with the
// order and never mutated afterwards except via inventory rollback.
type Order struct {
	ID                int64
	UserID            int64
	Number            string
	Status            OrderStatus
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	ShippingCost      decimal.Decimal
	Tax               decimal.Decimal
	GrandTotal        decimal.Decimal
	ShippingAddress   string
	PayPalOrderID     *string
	PaymentCapturedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Items             []OrderItem
}

// TotalsConsistent reports whether the grand total matches the breakdown.
func (o *Order) TotalsConsistent() bool {
	sum := o.Subtotal.Add(o.ShippingCost).Add(o.Tax).Sub(o.Discount)
	return o.GrandTotal.Equal(RoundMoney(sum))
}

// OrderItem is a line item snapshot. Unit price is copied at order time so
// historical orders are immune to later price changes.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}
