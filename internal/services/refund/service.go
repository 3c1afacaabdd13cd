package refund

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"bookpay/internal/errors"
	"bookpay/internal/gateway"
	"bookpay/internal/gateway/payos"
	"bookpay/internal/models"
	"bookpay/internal/repositories"
)

const settlementNotice = "Your refund has been initiated and will arrive within 1-3 business days."

type service struct {
	payments repositories.PaymentRepository
	requests repositories.RefundRequestRepository
	balance  Balance
	gateways map[string]Gateway
	holders  HolderResolver
	notifier Notifier
}

// NewService builds the refund engine. The gateways table is closed:
// every supported payment method must be present, anything else is
// rejected at refund time.
func NewService(
	payments repositories.PaymentRepository,
	requests repositories.RefundRequestRepository,
	balance Balance,
	gateways map[string]Gateway,
	holders HolderResolver,
	notifier Notifier,
) Service {
	return &service{
		payments: payments,
		requests: requests,
		balance:  balance,
		gateways: gateways,
		holders:  holders,
		notifier: notifier,
	}
}

// NewPayOSGateway adapts the PayOS client to the refund Gateway.
func NewPayOSGateway(client *payos.Client) Gateway {
	return &payosGateway{client: client}
}

type payosGateway struct {
	client *payos.Client
}

func (g *payosGateway) Refund(ctx context.Context, payment *models.Payment, amount int64, reason string) error {
	return g.client.Refund(ctx, payment.OrderCode, amount, reason)
}

func (s *service) ProcessRefund(ctx context.Context, paymentID uint, amount int64, reason string) (*models.Payment, error) {
	payment, err := s.getPayment(paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusRefunded || payment.RefundedAt != nil {
		return nil, errors.ErrAlreadyRefunded
	}
	if payment.Status == models.PaymentStatusRefundPending {
		return s.resumeRefund(ctx, payment, amount, reason)
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, errors.ErrNotRefundable.WithDetail("payment status is %s", payment.Status)
	}

	if amount == 0 {
		amount = payment.Amount
	}
	if amount < 0 || amount > payment.Amount {
		return nil, errors.ErrInvalidAmount.WithDetail("refund %d against payment of %d", amount, payment.Amount)
	}

	gw, ok := s.gateways[payment.Method]
	if !ok {
		return nil, errors.ErrGateway.WithDetail("no refund gateway for method %s", payment.Method)
	}

	// Reserve the payment. Whoever wins this transition owns the
	// refund; a loser observes the new status and backs off.
	moved, err := s.payments.UpdateStatusIfCurrent(payment.ID, models.PaymentStatusCompleted, models.PaymentStatusRefundPending)
	if err != nil {
		return nil, err
	}
	if !moved {
		current, gerr := s.getPayment(paymentID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status == models.PaymentStatusRefunded {
			return nil, errors.ErrAlreadyRefunded
		}
		return nil, errors.ErrNotRefundable.WithDetail("refund already in progress")
	}
	payment.Status = models.PaymentStatusRefundPending

	// Stage the merchant debit as a hold. A merchant who cannot cover
	// the refund goes to the operator queue instead.
	if err := s.balance.LockBalance(ctx, payment.AccountID, amount); err != nil {
		if stderrors.Is(err, errors.ErrInsufficientBalance) {
			return nil, s.queueForOperator(ctx, payment, amount, reason)
		}
		s.release(payment)
		return nil, err
	}

	// Record the staged attempt so an ambiguous gateway outcome can
	// be resubmitted later under the same order code.
	payment.RefundAmount = amount
	payment.RefundReason = reason
	if err := s.payments.Save(payment); err != nil {
		if uerr := s.balance.UnlockBalance(ctx, payment.AccountID, amount); uerr != nil {
			log.Printf("failed to release refund hold for payment %d: %v", payment.ID, uerr)
		}
		s.release(payment)
		return nil, err
	}

	return s.submit(ctx, payment, gw, amount, reason)
}

// resumeRefund retries a refund whose previous gateway call had an
// unknown outcome. The hold is still staged, so only the gateway call
// and settlement remain; the order code keeps the retry idempotent on
// the gateway side.
func (s *service) resumeRefund(ctx context.Context, payment *models.Payment, amount int64, reason string) (*models.Payment, error) {
	if _, err := s.requests.ActiveForPayment(payment.ID); err == nil {
		return nil, errors.ErrNotRefundable.WithDetail("refund is awaiting operator action")
	} else if err != repositories.ErrRefundRequestNotFound {
		return nil, err
	}

	staged := payment.RefundAmount
	if staged == 0 {
		return nil, errors.ErrNotRefundable.WithDetail("refund already in progress")
	}
	if amount != 0 && amount != staged {
		return nil, errors.ErrInvalidAmount.WithDetail("refund of %d is already in flight", staged)
	}
	if reason == "" {
		reason = payment.RefundReason
	}

	gw, ok := s.gateways[payment.Method]
	if !ok {
		return nil, errors.ErrGateway.WithDetail("no refund gateway for method %s", payment.Method)
	}
	return s.submit(ctx, payment, gw, staged, reason)
}

// submit runs the gateway call and settlement for a payment that is
// reserved and holds a staged debit.
func (s *service) submit(ctx context.Context, payment *models.Payment, gw Gateway, amount int64, reason string) (*models.Payment, error) {
	if err := gw.Refund(ctx, payment, amount, reason); err != nil {
		if gateway.IsAmbiguous(err) {
			// Unknown outcome: keep the hold and the REFUND_PENDING
			// status. The caller may resubmit under the same order
			// code; reconciliation reports the payment until then.
			log.Printf("refund outcome unknown for payment %d: %v", payment.ID, err)
			return nil, errors.ErrGateway.WithDetail("refund outcome unknown, resubmit to retry")
		}

		if uerr := s.balance.UnlockBalance(ctx, payment.AccountID, amount); uerr != nil {
			log.Printf("failed to release refund hold for payment %d: %v", payment.ID, uerr)
		}
		s.release(payment)
		return nil, errors.ErrGateway.WithDetail("%v", err)
	}

	reference := strconv.FormatInt(payment.OrderCode, 10)
	if err := s.balance.SettleRefund(ctx, payment.AccountID, amount, reference); err != nil {
		// Gateway already refunded; the hold stays until the ledger
		// is repaired. Never roll back the payment here.
		log.Printf("failed to settle refund debit for payment %d: %v", payment.ID, err)
		return nil, fmt.Errorf("settle refund debit: %w", err)
	}

	now := time.Now()
	payment.Status = models.PaymentStatusRefunded
	payment.RefundAmount = amount
	payment.RefundReason = reason
	payment.RefundedAt = &now
	if err := s.payments.Save(payment); err != nil {
		return nil, err
	}

	s.notify(ctx, payment.CustomerID, "Refund processed", settlementNotice)
	return payment, nil
}

// queueForOperator parks an uncoverable refund for manual action. The
// payment stays REFUND_PENDING so no second automatic attempt runs.
func (s *service) queueForOperator(ctx context.Context, payment *models.Payment, amount int64, reason string) error {
	req := &models.RefundRequest{
		ID:          uuid.NewString(),
		PaymentID:   payment.ID,
		AccountID:   payment.AccountID,
		Amount:      amount,
		Reason:      reason,
		Status:      models.RefundRequestQueued,
		CustomerID:  payment.CustomerID,
		RequestedAt: time.Now(),
	}
	if err := s.requests.Create(req); err != nil {
		s.release(payment)
		return err
	}

	log.Printf("refund for payment %d queued for operator: merchant %d balance insufficient", payment.ID, payment.AccountID)
	return errors.ErrRefundQueued
}

func (s *service) RefundablePayments(ctx context.Context) ([]models.Payment, error) {
	return s.payments.ListByStatus(models.PaymentStatusCompleted)
}

func (s *service) QueueManualRefund(ctx context.Context, input ManualRefundInput) (*models.RefundRequest, error) {
	payment, err := s.getPayment(input.PaymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusRefunded || payment.RefundedAt != nil {
		return nil, errors.ErrAlreadyRefunded
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, errors.ErrNotRefundable.WithDetail("payment status is %s", payment.Status)
	}
	if !s.holders.IsValidBankAccount(input.AccountNumber, input.BankCode) {
		return nil, errors.ErrInvalidBankAccount
	}

	moved, err := s.payments.UpdateStatusIfCurrent(payment.ID, models.PaymentStatusCompleted, models.PaymentStatusRefundPending)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, errors.ErrNotRefundable.WithDetail("refund already in progress")
	}
	payment.Status = models.PaymentStatusRefundPending

	holderName, err := s.holders.ResolveHolderName(ctx, input.AccountNumber, input.BankCode)
	if err != nil {
		log.Printf("holder name unresolved for payment %d: %v", payment.ID, err)
	}

	req := &models.RefundRequest{
		ID:                    uuid.NewString(),
		PaymentID:             payment.ID,
		AccountID:             payment.AccountID,
		Amount:                payment.Amount,
		Reason:                input.Reason,
		Status:                models.RefundRequestPending,
		CustomerID:            payment.CustomerID,
		CustomerBankCode:      input.BankCode,
		CustomerAccountNumber: input.AccountNumber,
		CustomerAccountHolder: holderName,
		RequestedAt:           time.Now(),
	}
	if err := s.requests.Create(req); err != nil {
		s.release(payment)
		return nil, err
	}

	s.notify(ctx, payment.CustomerID, "Refund requested", settlementNotice)
	return req, nil
}

func (s *service) CompleteRefundRequest(ctx context.Context, requestID, operator, note string) (*models.RefundRequest, error) {
	req, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RefundRequestQueued && req.Status != models.RefundRequestPending {
		return nil, errors.ErrRequestNotActionable.WithDetail("status is %s", req.Status)
	}

	payment, err := s.getPayment(req.PaymentID)
	if err != nil {
		return nil, err
	}

	// The debit was never staged while the request sat in the queue.
	if err := s.balance.LockBalance(ctx, req.AccountID, req.Amount); err != nil {
		return nil, err
	}
	reference := strconv.FormatInt(payment.OrderCode, 10)
	if err := s.balance.SettleRefund(ctx, req.AccountID, req.Amount, reference); err != nil {
		return nil, fmt.Errorf("settle refund debit: %w", err)
	}

	now := time.Now()
	payment.Status = models.PaymentStatusRefunded
	payment.RefundAmount = req.Amount
	payment.RefundReason = req.Reason
	payment.RefundedAt = &now
	if err := s.payments.Save(payment); err != nil {
		return nil, err
	}

	req.Status = models.RefundRequestCompleted
	req.ProcessedAt = &now
	req.ProcessedBy = operator
	req.AdminNote = note
	if err := s.requests.Save(req); err != nil {
		return nil, err
	}

	s.notify(ctx, req.CustomerID, "Refund completed", "Your refund has been transferred to your bank account.")
	return req, nil
}

func (s *service) RejectRefundRequest(ctx context.Context, requestID, operator, note string) (*models.RefundRequest, error) {
	req, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RefundRequestQueued && req.Status != models.RefundRequestPending {
		return nil, errors.ErrRequestNotActionable.WithDetail("status is %s", req.Status)
	}

	now := time.Now()
	req.Status = models.RefundRequestRejected
	req.ProcessedAt = &now
	req.ProcessedBy = operator
	req.AdminNote = note
	if err := s.requests.Save(req); err != nil {
		return nil, err
	}

	// The payment returns to the refundable pool.
	if _, err := s.payments.UpdateStatusIfCurrent(req.PaymentID, models.PaymentStatusRefundPending, models.PaymentStatusCompleted); err != nil {
		return nil, err
	}

	s.notify(ctx, req.CustomerID, "Refund rejected", "Your refund request was rejected. Please contact support.")
	return req, nil
}

func (s *service) ListRefundRequests(ctx context.Context, status string) ([]models.RefundRequest, error) {
	return s.requests.ListByStatus(status)
}

func (s *service) getPayment(id uint) (*models.Payment, error) {
	payment, err := s.payments.GetByID(id)
	if err != nil {
		if err == repositories.ErrPaymentNotFound {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (s *service) getRequest(id string) (*models.RefundRequest, error) {
	req, err := s.requests.GetByID(id)
	if err != nil {
		if err == repositories.ErrRefundRequestNotFound {
			return nil, errors.ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// release puts a reserved payment back to COMPLETED and clears any
// staged refund attempt.
func (s *service) release(payment *models.Payment) {
	moved, err := s.payments.UpdateStatusIfCurrent(payment.ID, models.PaymentStatusRefundPending, models.PaymentStatusCompleted)
	if err != nil {
		log.Printf("failed to release payment %d after refund rollback: %v", payment.ID, err)
		return
	}
	if !moved {
		return
	}
	payment.Status = models.PaymentStatusCompleted
	payment.RefundAmount = 0
	payment.RefundReason = ""
	if err := s.payments.Save(payment); err != nil {
		log.Printf("failed to clear refund attempt on payment %d: %v", payment.ID, err)
	}
}

func (s *service) notify(ctx context.Context, customerID uint, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, customerID, title, message); err != nil {
		log.Printf("failed to notify customer %d: %v", customerID, err)
	}
}
