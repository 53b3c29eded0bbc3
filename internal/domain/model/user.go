package model

// User as consumed by checkout: shipping address gates order creation, the
// name is forwarded to the payment provider's shipping detail.
type User struct {
	ID              int64
	FirstName       string
	LastName        string
	ShippingAddress string
}
