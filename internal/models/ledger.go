package models

import "time"

// Ledger entry types
const (
	LedgerTypeRevenue           = "REVENUE"
	LedgerTypeCommission        = "COMMISSION"
	LedgerTypeLock              = "LOCK"
	LedgerTypeUnlock            = "UNLOCK"
	LedgerTypeWithdrawalSettled = "WITHDRAWAL_SETTLED"
	LedgerTypeRefundDebit       = "REFUND_DEBIT"
)

// Ledger entry statuses
const (
	LedgerStatusCompleted = "completed"
)

// LedgerEntry is the immutable record of one monetary event. Entries
// are created once per mutating balance operation and never updated;
// replaying them in creation order reproduces the account balance.
type LedgerEntry struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	AccountID   uint   `gorm:"index;not null" json:"account_id"`
	Type        string `gorm:"not null" json:"type"`
	Amount      int64  `gorm:"not null" json:"amount"`
	Status      string `gorm:"not null;default:'completed'" json:"status"`
	Description string `json:"description"`
	Reference   string `json:"reference"` // external correlation, e.g. order code
	CreatedAt   time.Time `json:"created_at"`
}
