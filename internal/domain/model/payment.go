package model

// PaymentSessionStatus mirrors the remote payment provider order status.
// Values outside the known set are passed through unchanged.
type PaymentSessionStatus string

const (
	PaymentStatusCreated   PaymentSessionStatus = "CREATED"
	PaymentStatusApproved  PaymentSessionStatus = "APPROVED"
	PaymentStatusVoided    PaymentSessionStatus = "VOIDED"
	PaymentStatusCompleted PaymentSessionStatus = "COMPLETED"
	PaymentStatusDenied    PaymentSessionStatus = "DENIED"
)

// PaymentSession references a remote payment-provider transaction scoped to
// one order.
type PaymentSession struct {
	ID          string
	ApprovalURL string
}
