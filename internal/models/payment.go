package models

import "time"

// Payment statuses
const (
	PaymentStatusPending       = "PENDING"
	PaymentStatusCompleted     = "COMPLETED"
	PaymentStatusRefundPending = "REFUND_PENDING"
	PaymentStatusRefunded      = "REFUNDED"
	PaymentStatusFailed        = "FAILED"
	PaymentStatusCancelled     = "CANCELLED"
)

// Payment methods
const (
	PaymentMethodPayOS = "PAYOS"
	PaymentMethodCard  = "CARD"
)

// Payment is one customer payment. OrderCode is the external
// correlation id shared with the gateway; it is unique and is the
// idempotency key for refund submission. Once REFUNDED the record is
// immutable apart from audit fields.
type Payment struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	OrderCode int64  `gorm:"uniqueIndex;not null" json:"order_code"`
	AccountID uint   `gorm:"index;not null" json:"account_id"`
	Amount    int64  `gorm:"not null" json:"amount"`
	Method    string `gorm:"not null;default:'PAYOS'" json:"method"`
	Status    string `gorm:"not null;default:'PENDING'" json:"status"`

	// ProviderRef is the provider-side id needed for card refunds,
	// e.g. the Stripe payment intent. Empty for PAYOS payments.
	ProviderRef string `json:"provider_ref,omitempty"`

	CustomerID uint `gorm:"index" json:"customer_id"`

	RefundAmount int64      `gorm:"default:0" json:"refund_amount"`
	RefundReason string     `json:"refund_reason"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Refundable reports whether the payment can enter the refund path.
func (p *Payment) Refundable() bool {
	return p.Status == PaymentStatusCompleted && p.RefundedAt == nil
}
