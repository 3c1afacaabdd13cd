package models

import "time"

// Reconciliation run statuses
const (
	ReconciliationStatusPending       = "PENDING"
	ReconciliationStatusRunning       = "RUNNING"
	ReconciliationStatusCompleted     = "COMPLETED"
	ReconciliationStatusDiscrepancies = "COMPLETED_WITH_DISCREPANCIES"
	ReconciliationStatusFailed        = "FAILED"
)

// Per-payment classification outcomes
const (
	ReconciliationMatched     = "MATCHED"
	ReconciliationUnmatched   = "UNMATCHED"
	ReconciliationDiscrepancy = "DISCREPANCY"
)

// Discrepancy reasons
const (
	DiscrepancyAmountMismatch = "AMOUNT_MISMATCH"
	DiscrepancyStatusMismatch = "STATUS_MISMATCH"
	DiscrepancyMissingOrder   = "MISSING_ORDER_CODE"
	DiscrepancyGatewayMissing = "GATEWAY_NOT_FOUND"
)

// ReconciliationRun is one reconciliation pass over a (date, method)
// window. Re-running a window supersedes the prior run instead of
// duplicating it. Owns the per-payment detail rows.
type ReconciliationRun struct {
	ID                 string    `gorm:"primarykey" json:"id"`
	ReconciliationDate time.Time `gorm:"index:idx_recon_window;not null" json:"reconciliation_date"`
	PaymentMethod      string    `gorm:"index:idx_recon_window;not null" json:"payment_method"`
	TotalTransactions  int       `gorm:"default:0" json:"total_transactions"`
	MatchedCount       int       `gorm:"default:0" json:"matched_count"`
	UnmatchedCount     int       `gorm:"default:0" json:"unmatched_count"`
	DiscrepancyCount   int       `gorm:"default:0" json:"discrepancy_count"`
	Status             string    `gorm:"not null;default:'PENDING'" json:"status"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`

	Details []ReconciliationDetail `gorm:"foreignKey:RunID" json:"details,omitempty"`
}

// ReconciliationDetail records the classification outcome for one
// examined payment, including any amount delta versus the gateway
// (gateway amount minus internal amount).
type ReconciliationDetail struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	RunID          string `gorm:"index;not null" json:"run_id"`
	PaymentID      uint   `gorm:"index;not null" json:"payment_id"`
	OrderCode      int64  `json:"order_code"`
	Classification string `gorm:"not null" json:"classification"`
	Reason         string `json:"reason"`
	AmountDelta    int64  `gorm:"default:0" json:"amount_delta"`
	Message        string `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
