package refund

import (
	"context"

	"bookpay/internal/models"
)

// Gateway returns customer funds at the payment provider. A
// gateway.RejectedError is a definitive refusal; any other failure is
// ambiguous and must not be retried blindly.
type Gateway interface {
	Refund(ctx context.Context, payment *models.Payment, amount int64, reason string) error
}

// Balance is the slice of the balance engine the refund flow drives.
type Balance interface {
	LockBalance(ctx context.Context, accountID uint, amount int64) error
	UnlockBalance(ctx context.Context, accountID uint, amount int64) error
	SettleRefund(ctx context.Context, accountID uint, amount int64, reference string) error
}

// HolderResolver resolves and validates customer bank accounts for
// operator-handled transfers.
type HolderResolver interface {
	ResolveHolderName(ctx context.Context, accountNumber, bankCode string) (string, error)
	IsValidBankAccount(accountNumber, bankCode string) bool
}

type Notifier interface {
	Notify(ctx context.Context, customerID uint, title, message string) error
}

// ManualRefundInput queues a refund the operator settles by bank
// transfer instead of through the gateway.
type ManualRefundInput struct {
	PaymentID     uint
	Reason        string
	BankCode      string
	AccountNumber string
}

type Service interface {
	// ProcessRefund refunds a completed payment through its gateway.
	// Zero amount means a full refund.
	ProcessRefund(ctx context.Context, paymentID uint, amount int64, reason string) (*models.Payment, error)
	RefundablePayments(ctx context.Context) ([]models.Payment, error)

	// Operator queue
	QueueManualRefund(ctx context.Context, input ManualRefundInput) (*models.RefundRequest, error)
	CompleteRefundRequest(ctx context.Context, requestID, operator, note string) (*models.RefundRequest, error)
	RejectRefundRequest(ctx context.Context, requestID, operator, note string) (*models.RefundRequest, error)
	ListRefundRequests(ctx context.Context, status string) ([]models.RefundRequest, error)
}
