package models

import (
	"math"
	"time"
)

// Commission types
const (
	CommissionTypePercentage = "PERCENTAGE"
	CommissionTypeFixed      = "FIXED"
)

// AccountBalance tracks a merchant's running financial position.
// Amounts are VND with no decimal places. TotalCommission and
// AvailableBalance are derived and recomputed on every mutation;
// they are never authoritative on their own.
type AccountBalance struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	AccountID uint   `gorm:"uniqueIndex;not null" json:"account_id"`

	// Revenue tracking
	TotalRevenue           int64 `gorm:"default:0" json:"total_revenue"`
	TotalBookingsCompleted int   `gorm:"default:0" json:"total_bookings_completed"`

	// Commission configuration
	CommissionType        string  `gorm:"default:'PERCENTAGE'" json:"commission_type"`
	CommissionRate        float64 `gorm:"default:7" json:"commission_rate"` // percent
	CommissionFixedAmount int64   `gorm:"default:0" json:"commission_fixed_amount"`
	TotalCommission       int64   `gorm:"default:0" json:"total_commission"`

	// Withdrawal tracking
	TotalWithdrawn          int64 `gorm:"default:0" json:"total_withdrawn"`
	PendingWithdrawal       int64 `gorm:"default:0" json:"pending_withdrawal"`
	TotalWithdrawalRequests int   `gorm:"default:0" json:"total_withdrawal_requests"`

	// Refund tracking. Refunds reduce available funds but not the
	// commission base: the platform keeps commission already taken.
	TotalRefunded int64 `gorm:"default:0" json:"total_refunded"`

	// Derived balance
	AvailableBalance int64 `gorm:"default:0" json:"available_balance"`

	LastCalculatedAt time.Time  `json:"last_calculated_at"`
	LastWithdrawalAt *time.Time `json:"last_withdrawal_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CalculateCommission derives the commission owed for the current
// revenue and commission configuration.
func (b *AccountBalance) CalculateCommission() int64 {
	if b.CommissionType == CommissionTypeFixed {
		return b.CommissionFixedAmount * int64(b.TotalBookingsCompleted)
	}
	return int64(math.Round(float64(b.TotalRevenue) * b.CommissionRate / 100))
}

// Recalculate rebuilds the derived fields from the accrual fields.
// available = revenue - commission - withdrawn - pending - refunded.
func (b *AccountBalance) Recalculate() {
	b.TotalCommission = b.CalculateCommission()
	b.AvailableBalance = b.TotalRevenue - b.TotalCommission - b.TotalWithdrawn - b.PendingWithdrawal - b.TotalRefunded
	b.LastCalculatedAt = time.Now()
}

// AddRevenue credits completed-booking revenue.
func (b *AccountBalance) AddRevenue(amount int64) {
	b.TotalRevenue += amount
	b.TotalBookingsCompleted++
	b.Recalculate()
}

// Lock moves funds from available into pending withdrawal.
func (b *AccountBalance) Lock(amount int64) {
	b.PendingWithdrawal += amount
	b.Recalculate()
}

// Unlock releases a pending withdrawal hold. Pending never underflows.
func (b *AccountBalance) Unlock(amount int64) {
	b.PendingWithdrawal -= amount
	if b.PendingWithdrawal < 0 {
		b.PendingWithdrawal = 0
	}
	b.Recalculate()
}

// ConfirmWithdrawal settles a previously locked amount.
func (b *AccountBalance) ConfirmWithdrawal(amount int64) {
	b.TotalWithdrawn += amount
	b.PendingWithdrawal -= amount
	if b.PendingWithdrawal < 0 {
		b.PendingWithdrawal = 0
	}
	b.TotalWithdrawalRequests++
	now := time.Now()
	b.LastWithdrawalAt = &now
	b.Recalculate()
}

// DebitRefund releases the refund hold and accrues the full refunded
// amount against available funds. Revenue and the commission derived
// from it stay untouched, so the merchant bears the commission
// already taken on the refunded booking.
func (b *AccountBalance) DebitRefund(amount int64) {
	b.PendingWithdrawal -= amount
	if b.PendingWithdrawal < 0 {
		b.PendingWithdrawal = 0
	}
	b.TotalRefunded += amount
	b.Recalculate()
}

// HasEnoughBalance reports whether amount can be withdrawn right now.
func (b *AccountBalance) HasEnoughBalance(amount int64) bool {
	return b.AvailableBalance >= amount
}
