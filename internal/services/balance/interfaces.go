package balance

import (
	"context"

	"bookpay/internal/models"
)

// Service is the balance engine. All mutating operations are
// serialized per account, append a ledger entry and save the balance
// inside one transaction, and uphold
// available == revenue - commission - withdrawn - pending, >= 0.
type Service interface {
	// Reads
	GetOrCreateBalance(ctx context.Context, accountID uint) (*models.AccountBalance, error)
	GetBalance(ctx context.Context, accountID uint) (*BalanceView, error)

	// Mutations
	AddRevenue(ctx context.Context, accountID uint, amount int64) error
	LockBalance(ctx context.Context, accountID uint, amount int64) error
	UnlockBalance(ctx context.Context, accountID uint, amount int64) error
	ConfirmWithdrawal(ctx context.Context, accountID uint, amount int64) error
	// SettleRefund converts a previously staged refund hold into a
	// permanent refund debit. Commission already accrued on the
	// refunded revenue stays with the platform.
	SettleRefund(ctx context.Context, accountID uint, amount int64, reference string) error

	// Integrity
	RecalculateFromLedger(ctx context.Context, accountID uint) (*models.AccountBalance, error)
	RecalculateAll(ctx context.Context) error
	VerifyLedger(ctx context.Context, accountID uint) error
}

// Cache is the subset of the cache service the engine needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	BalanceKey(accountID uint) string
	InvalidateBalance(ctx context.Context, accountID uint) error
}
