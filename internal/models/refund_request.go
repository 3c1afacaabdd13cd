package models

import "time"

// Refund request statuses
const (
	RefundRequestQueued    = "QUEUED"
	RefundRequestPending   = "PENDING"
	RefundRequestCompleted = "COMPLETED"
	RefundRequestRejected  = "REJECTED"
)

// RefundRequest is a refund waiting on operator action: either the
// merchant could not cover the debit (QUEUED) or the transfer is done
// manually (PENDING). Carries the customer's bank details and the
// resolved account holder name for the transfer.
type RefundRequest struct {
	ID        string `gorm:"primarykey" json:"id"`
	PaymentID uint   `gorm:"index;not null" json:"payment_id"`
	AccountID uint   `gorm:"index;not null" json:"account_id"`
	Amount    int64  `gorm:"not null" json:"amount"`
	Reason    string `json:"reason"`
	Status    string `gorm:"not null;default:'QUEUED'" json:"status"`

	CustomerID            uint   `json:"customer_id"`
	CustomerBankCode      string `json:"customer_bank_code"`
	CustomerAccountNumber string `json:"customer_account_number"`
	CustomerAccountHolder string `json:"customer_account_holder"`

	RequestedAt time.Time  `json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy string     `json:"processed_by"`
	AdminNote   string     `json:"admin_note"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
