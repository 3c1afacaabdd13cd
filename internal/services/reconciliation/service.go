// Package reconciliation compares internal payments against the
// gateway's records and reports every mismatch. It never corrects
// anything itself.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "bookpay/internal/errors"
	"bookpay/internal/gateway"
	"bookpay/internal/gateway/payos"
	"bookpay/internal/models"
	"bookpay/internal/repositories"
)

// GatewayLookup fetches the gateway's record for one order code.
type GatewayLookup interface {
	GetTransaction(ctx context.Context, orderCode int64) (*payos.Transaction, error)
}

type Service interface {
	// RunReconciliation reconciles every payment of the given method
	// created on the given date. Re-running a window supersedes the
	// prior run.
	RunReconciliation(ctx context.Context, date time.Time, method string) (*models.ReconciliationRun, error)
	GetRun(ctx context.Context, id string) (*models.ReconciliationRun, error)
}

// Gateway statuses a payment may legitimately hold per internal
// status. REFUND_PENDING is deliberately absent: an unresolved refund
// is always reported so the operator settles the outcome.
var acceptableGatewayStatus = map[string][]string{
	models.PaymentStatusPending:   {"PENDING"},
	models.PaymentStatusCompleted: {"PAID"},
	models.PaymentStatusRefunded:  {"REFUNDED"},
	models.PaymentStatusCancelled: {"CANCELLED", "EXPIRED"},
	models.PaymentStatusFailed:    {"CANCELLED", "EXPIRED"},
}

type service struct {
	runs     repositories.ReconciliationRepository
	payments repositories.PaymentRepository
	lookup   GatewayLookup

	mu      sync.Mutex
	running map[string]bool
}

func NewService(runs repositories.ReconciliationRepository, payments repositories.PaymentRepository, lookup GatewayLookup) Service {
	return &service{
		runs:     runs,
		payments: payments,
		lookup:   lookup,
		running:  make(map[string]bool),
	}
}

func windowKey(date time.Time, method string) string {
	return date.Format("2006-01-02") + "/" + method
}

func (s *service) RunReconciliation(ctx context.Context, date time.Time, method string) (*models.ReconciliationRun, error) {
	window := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	key := windowKey(window, method)
	s.mu.Lock()
	if s.running[key] {
		s.mu.Unlock()
		return nil, apperrors.ErrReconciliationRunning
	}
	s.running[key] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, key)
		s.mu.Unlock()
	}()

	if err := s.runs.DeleteRunsForWindow(window, method); err != nil {
		return nil, err
	}

	run := &models.ReconciliationRun{
		ID:                 uuid.NewString(),
		ReconciliationDate: window,
		PaymentMethod:      method,
		Status:             models.ReconciliationStatusRunning,
		StartedAt:          time.Now(),
	}
	if err := s.runs.CreateRun(run); err != nil {
		return nil, err
	}

	log.Printf("reconciliation %s started for %s/%s", run.ID, window.Format("2006-01-02"), method)

	payments, err := s.payments.ListByDateAndMethod(window, method)
	if err != nil {
		return nil, s.fail(run, fmt.Errorf("list payments: %w", err))
	}

	for _, payment := range payments {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(run, err)
		}

		detail, err := s.examine(ctx, run.ID, &payment)
		if err != nil {
			return nil, s.fail(run, err)
		}
		if err := s.runs.AppendDetail(detail); err != nil {
			return nil, s.fail(run, err)
		}

		run.TotalTransactions++
		switch detail.Classification {
		case models.ReconciliationMatched:
			run.MatchedCount++
		case models.ReconciliationUnmatched:
			run.UnmatchedCount++
		case models.ReconciliationDiscrepancy:
			run.DiscrepancyCount++
		}
	}

	run.Status = models.ReconciliationStatusCompleted
	if run.DiscrepancyCount > 0 || run.UnmatchedCount > 0 {
		run.Status = models.ReconciliationStatusDiscrepancies
	}
	now := time.Now()
	run.FinishedAt = &now
	if err := s.runs.SaveRun(run); err != nil {
		return nil, err
	}

	log.Printf("reconciliation %s finished: %d total, %d matched, %d unmatched, %d discrepancies",
		run.ID, run.TotalTransactions, run.MatchedCount, run.UnmatchedCount, run.DiscrepancyCount)
	return run, nil
}

// examine classifies one payment against the gateway's record. A
// definitive gateway rejection means the gateway has no such order; a
// transport failure aborts the run.
func (s *service) examine(ctx context.Context, runID string, payment *models.Payment) (*models.ReconciliationDetail, error) {
	detail := &models.ReconciliationDetail{
		RunID:     runID,
		PaymentID: payment.ID,
		OrderCode: payment.OrderCode,
	}

	if payment.OrderCode == 0 {
		detail.Classification = models.ReconciliationDiscrepancy
		detail.Reason = models.DiscrepancyMissingOrder
		detail.Message = "payment has no order code"
		return detail, nil
	}

	tx, err := s.lookup.GetTransaction(ctx, payment.OrderCode)
	if err != nil {
		var rejected *gateway.RejectedError
		if errors.As(err, &rejected) {
			detail.Classification = models.ReconciliationUnmatched
			detail.Reason = models.DiscrepancyGatewayMissing
			detail.Message = fmt.Sprintf("gateway has no record: %s", rejected.Desc)
			return detail, nil
		}
		return nil, fmt.Errorf("gateway lookup for order %d: %w", payment.OrderCode, err)
	}

	if delta := tx.Amount - payment.Amount; delta != 0 {
		detail.Classification = models.ReconciliationDiscrepancy
		detail.Reason = models.DiscrepancyAmountMismatch
		detail.AmountDelta = delta
		detail.Message = fmt.Sprintf("internal %d, gateway %d", payment.Amount, tx.Amount)
		return detail, nil
	}

	if !statusMatches(payment.Status, tx.Status) {
		detail.Classification = models.ReconciliationDiscrepancy
		detail.Reason = models.DiscrepancyStatusMismatch
		detail.Message = fmt.Sprintf("internal %s, gateway %s", payment.Status, tx.Status)
		return detail, nil
	}

	detail.Classification = models.ReconciliationMatched
	return detail, nil
}

func statusMatches(internal, gatewayStatus string) bool {
	for _, s := range acceptableGatewayStatus[internal] {
		if s == gatewayStatus {
			return true
		}
	}
	return false
}

func (s *service) fail(run *models.ReconciliationRun, cause error) error {
	now := time.Now()
	run.Status = models.ReconciliationStatusFailed
	run.FinishedAt = &now
	if err := s.runs.SaveRun(run); err != nil {
		log.Printf("failed to mark reconciliation %s failed: %v", run.ID, err)
	}
	return fmt.Errorf("reconciliation %s failed: %w", run.ID, cause)
}

func (s *service) GetRun(ctx context.Context, id string) (*models.ReconciliationRun, error) {
	run, err := s.runs.GetRun(id)
	if err != nil {
		if err == repositories.ErrRunNotFound {
			return nil, apperrors.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}
