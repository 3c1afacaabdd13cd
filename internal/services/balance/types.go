package balance

import (
	"time"

	"bookpay/internal/models"
)

// Config holds configuration for the balance engine.
type Config struct {
	// DefaultCommissionRate is the percentage applied to new accounts.
	DefaultCommissionRate float64
	// DefaultCommissionType selects PERCENTAGE or FIXED commission.
	DefaultCommissionType string
	// DefaultCommissionFixed is the per-booking fixed commission, VND.
	DefaultCommissionFixed int64
	// MinimumWithdrawal is the smallest amount a merchant may withdraw.
	MinimumWithdrawal int64
}

// BalanceView is the read-only projection returned to callers.
type BalanceView struct {
	AccountID              uint       `json:"account_id"`
	TotalRevenue           int64      `json:"total_revenue"`
	TotalBookingsCompleted int        `json:"total_bookings_completed"`
	CommissionType         string     `json:"commission_type"`
	CommissionRate         float64    `json:"commission_rate"`
	CommissionFixedAmount  int64      `json:"commission_fixed_amount"`
	TotalCommission        int64      `json:"total_commission"`
	TotalWithdrawn         int64      `json:"total_withdrawn"`
	PendingWithdrawal      int64      `json:"pending_withdrawal"`
	TotalRefunded          int64      `json:"total_refunded"`
	AvailableBalance       int64      `json:"available_balance"`
	MinimumWithdrawal      int64      `json:"minimum_withdrawal"`
	CanWithdraw            bool       `json:"can_withdraw"`
	LastCalculatedAt       time.Time  `json:"last_calculated_at"`
	LastWithdrawalAt       *time.Time `json:"last_withdrawal_at,omitempty"`
}

func newView(b *models.AccountBalance, minWithdrawal int64) *BalanceView {
	return &BalanceView{
		AccountID:              b.AccountID,
		TotalRevenue:           b.TotalRevenue,
		TotalBookingsCompleted: b.TotalBookingsCompleted,
		CommissionType:         b.CommissionType,
		CommissionRate:         b.CommissionRate,
		CommissionFixedAmount:  b.CommissionFixedAmount,
		TotalCommission:        b.TotalCommission,
		TotalWithdrawn:         b.TotalWithdrawn,
		PendingWithdrawal:      b.PendingWithdrawal,
		TotalRefunded:          b.TotalRefunded,
		AvailableBalance:       b.AvailableBalance,
		MinimumWithdrawal:      minWithdrawal,
		CanWithdraw:            b.HasEnoughBalance(minWithdrawal),
		LastCalculatedAt:       b.LastCalculatedAt,
		LastWithdrawalAt:       b.LastWithdrawalAt,
	}
}
