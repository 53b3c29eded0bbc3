package dto

import "time"

// InitializeCheckoutResponse is returned when a payment session is opened.
type InitializeCheckoutResponse struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	ApprovalURL string `json:"approval_url"`
	GrandTotal  string `json:"grand_total"`
	Status      string `json:"status"`
}

// SessionRequest carries the remote payment session identifier from the
// return/cancel callbacks.
type SessionRequest struct {
	PayPalOrderID string `json:"paypal_order_id" binding:"required"`
}

// OrderResponse is the order summary serialization.
type OrderResponse struct {
	OrderID           int64               `json:"order_id"`
	Number            string              `json:"number"`
	Status            string              `json:"status"`
	Subtotal          string              `json:"subtotal"`
	Discount          string              `json:"discount"`
	ShippingCost      string              `json:"shipping_cost"`
	Tax               string              `json:"tax"`
	GrandTotal        string              `json:"grand_total"`
	ShippingAddress   string              `json:"shipping_address"`
	PaymentCapturedAt *time.Time          `json:"payment_captured_at,omitempty"`
	Items             []OrderItemResponse `json:"items"`
}

// OrderItemResponse is one order line in OrderResponse.
type OrderItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// ErrorResponse is the structured failure body: kind plus relevant identifiers.
type ErrorResponse struct {
	Error       string  `json:"error"`
	ProductIDs  []int64 `json:"product_ids,omitempty"`
	ProductID   int64   `json:"product_id,omitempty"`
	Available   *int    `json:"available,omitempty"`
	OrderNumber string  `json:"order_number,omitempty"`
}
