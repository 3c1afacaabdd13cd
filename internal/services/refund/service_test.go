package refund

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "bookpay/internal/errors"
	"bookpay/internal/gateway"
	"bookpay/internal/models"
	"bookpay/internal/repositories"
	"bookpay/internal/services/balance"
)

type stubGateway struct {
	err        error
	calls      int
	lastAmount int64
}

func (g *stubGateway) Refund(ctx context.Context, payment *models.Payment, amount int64, reason string) error {
	g.calls++
	g.lastAmount = amount
	return g.err
}

type stubHolders struct {
	valid bool
	name  string
	err   error
}

func (h *stubHolders) ResolveHolderName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	return h.name, h.err
}

func (h *stubHolders) IsValidBankAccount(accountNumber, bankCode string) bool {
	return h.valid
}

type stubNotifier struct {
	titles []string
}

func (n *stubNotifier) Notify(ctx context.Context, customerID uint, title, message string) error {
	n.titles = append(n.titles, title)
	return nil
}

type fixture struct {
	svc      Service
	payments repositories.PaymentRepository
	requests repositories.RefundRequestRepository
	balances balance.Service
	gateway  *stubGateway
	notifier *stubNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	payments := repositories.NewPaymentRepository(db)
	requests := repositories.NewRefundRequestRepository(db)
	balances := balance.NewService(repositories.NewBalanceRepository(db), nil, balance.Config{DefaultCommissionRate: 5})

	gw := &stubGateway{}
	notifier := &stubNotifier{}
	holders := &stubHolders{valid: true, name: "NGUYEN VAN A"}

	svc := NewService(payments, requests, balances, map[string]Gateway{
		models.PaymentMethodPayOS: gw,
	}, holders, notifier)

	return &fixture{
		svc:      svc,
		payments: payments,
		requests: requests,
		balances: balances,
		gateway:  gw,
		notifier: notifier,
	}
}

func (f *fixture) seedPayment(t *testing.T, status string, amount int64) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		OrderCode:  20251007001,
		AccountID:  1,
		CustomerID: 9,
		Amount:     amount,
		Method:     models.PaymentMethodPayOS,
		Status:     status,
	}
	require.NoError(t, f.payments.Create(payment))
	return payment
}

func (f *fixture) fundMerchant(t *testing.T, amount int64) {
	t.Helper()
	require.NoError(t, f.balances.AddRevenue(context.Background(), 1, amount))
}

func TestProcessRefundFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 500_000)

	refunded, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "customer request")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
	assert.Equal(t, int64(500_000), refunded.RefundAmount)
	assert.Equal(t, "customer request", refunded.RefundReason)
	require.NotNil(t, refunded.RefundedAt)
	assert.Equal(t, 1, f.gateway.calls)
	assert.Equal(t, int64(500_000), f.gateway.lastAmount)

	b, err := f.balances.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), b.TotalRevenue)
	assert.Equal(t, int64(50_000), b.TotalCommission)
	assert.Equal(t, int64(500_000), b.TotalRefunded)
	assert.Equal(t, int64(0), b.PendingWithdrawal)
	assert.Equal(t, int64(450_000), b.AvailableBalance)

	assert.Contains(t, f.notifier.titles, "Refund processed")
	require.NoError(t, f.balances.VerifyLedger(ctx, 1))
}

func TestProcessRefundPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 500_000)

	refunded, err := f.svc.ProcessRefund(ctx, payment.ID, 200_000, "partial cancellation")
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), refunded.RefundAmount)

	b, err := f.balances.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), b.TotalRevenue)
	assert.Equal(t, int64(200_000), b.TotalRefunded)
	assert.Equal(t, int64(750_000), b.AvailableBalance)
}

func TestProcessRefundIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 500_000)

	_, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "first")
	require.NoError(t, err)

	_, err = f.svc.ProcessRefund(ctx, payment.ID, 0, "second")
	require.ErrorIs(t, err, apperrors.ErrAlreadyRefunded)
	assert.Equal(t, 1, f.gateway.calls)
}

func TestProcessRefundValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)

	t.Run("payment not found", func(t *testing.T) {
		_, err := f.svc.ProcessRefund(ctx, 9999, 0, "")
		require.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
	})

	t.Run("not refundable", func(t *testing.T) {
		payment := f.seedPayment(t, models.PaymentStatusPending, 500_000)
		_, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "")
		require.ErrorIs(t, err, apperrors.ErrNotRefundable)
	})

	t.Run("amount exceeds payment", func(t *testing.T) {
		payment := &models.Payment{
			OrderCode: 20251007002, AccountID: 1, Amount: 100_000,
			Method: models.PaymentMethodPayOS, Status: models.PaymentStatusCompleted,
		}
		require.NoError(t, f.payments.Create(payment))

		_, err := f.svc.ProcessRefund(ctx, payment.ID, 150_000, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidAmount)

		_, err = f.svc.ProcessRefund(ctx, payment.ID, -1, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	})
}

func TestProcessRefundUnsupportedMethod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)

	payment := &models.Payment{
		OrderCode: 20251007003, AccountID: 1, Amount: 100_000,
		Method: "CASH", Status: models.PaymentStatusCompleted,
	}
	require.NoError(t, f.payments.Create(payment))

	_, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "")
	require.ErrorIs(t, err, apperrors.ErrGateway)
	assert.Equal(t, 0, f.gateway.calls)

	// Dispatch failure happens before the reservation.
	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, current.Status)
}

func TestProcessRefundGatewayRejectedRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 500_000)

	f.gateway.err = &gateway.RejectedError{Provider: "payos", Code: "231", Desc: "refund window closed"}

	_, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "")
	require.ErrorIs(t, err, apperrors.ErrGateway)

	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, current.Status)
	assert.Equal(t, int64(0), current.RefundAmount)

	b, err := f.balances.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), b.TotalRevenue)
	assert.Equal(t, int64(0), b.PendingWithdrawal)
	assert.Equal(t, int64(950_000), b.AvailableBalance)
	require.NoError(t, f.balances.VerifyLedger(ctx, 1))
}

func TestProcessRefundAmbiguousOutcomeStaysPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 500_000)

	f.gateway.err = context.DeadlineExceeded

	_, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "")
	require.ErrorIs(t, err, apperrors.ErrGateway)

	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefundPending, current.Status)

	// The hold survives until the caller resubmits.
	b, err := f.balances.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), b.PendingWithdrawal)
}

func TestProcessRefundResubmitAfterAmbiguousOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 500_000)

	f.gateway.err = context.DeadlineExceeded
	_, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "customer request")
	require.ErrorIs(t, err, apperrors.ErrGateway)

	// A resubmission with a different amount is refused while the
	// staged attempt is in flight.
	f.gateway.err = nil
	_, err = f.svc.ProcessRefund(ctx, payment.ID, 100_000, "")
	require.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	refunded, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
	assert.Equal(t, int64(500_000), refunded.RefundAmount)
	assert.Equal(t, "customer request", refunded.RefundReason)
	assert.Equal(t, 2, f.gateway.calls)
	assert.Equal(t, int64(500_000), f.gateway.lastAmount)

	b, err := f.balances.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.PendingWithdrawal)
	assert.Equal(t, int64(500_000), b.TotalRefunded)
	assert.Equal(t, int64(450_000), b.AvailableBalance)
	require.NoError(t, f.balances.VerifyLedger(ctx, 1))
}

func TestProcessRefundInsufficientFundsQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 100_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 500_000)

	_, err := f.svc.ProcessRefund(ctx, payment.ID, 0, "no show")
	require.ErrorIs(t, err, apperrors.ErrRefundQueued)
	assert.Equal(t, 0, f.gateway.calls)

	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefundPending, current.Status)

	queued, err := f.requests.ListByStatus(models.RefundRequestQueued)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, payment.ID, queued[0].PaymentID)
	assert.Equal(t, int64(500_000), queued[0].Amount)

	// While the operator owns the request, resubmission is refused
	// and no second gateway attempt runs.
	_, err = f.svc.ProcessRefund(ctx, payment.ID, 0, "no show")
	require.ErrorIs(t, err, apperrors.ErrNotRefundable)
	assert.Equal(t, 0, f.gateway.calls)
}

func TestQueueManualRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 300_000)

	req, err := f.svc.QueueManualRefund(ctx, ManualRefundInput{
		PaymentID:     payment.ID,
		Reason:        "venue closed",
		BankCode:      "970422",
		AccountNumber: "001122334455",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RefundRequestPending, req.Status)
	assert.Equal(t, int64(300_000), req.Amount)
	assert.Equal(t, "NGUYEN VAN A", req.CustomerAccountHolder)
	assert.NotEmpty(t, req.ID)

	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefundPending, current.Status)
}

func TestQueueManualRefundInvalidBankAccount(t *testing.T) {
	f := newFixture(t)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 300_000)

	svc := NewService(f.payments, f.requests, f.balances, map[string]Gateway{}, &stubHolders{valid: false}, f.notifier)
	_, err := svc.QueueManualRefund(context.Background(), ManualRefundInput{
		PaymentID:     payment.ID,
		BankCode:      "000",
		AccountNumber: "123",
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidBankAccount)
}

func TestCompleteRefundRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundMerchant(t, 1_000_000)
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 300_000)

	req, err := f.svc.QueueManualRefund(ctx, ManualRefundInput{
		PaymentID:     payment.ID,
		Reason:        "venue closed",
		BankCode:      "970422",
		AccountNumber: "001122334455",
	})
	require.NoError(t, err)

	done, err := f.svc.CompleteRefundRequest(ctx, req.ID, "ops@bookpay", "transferred")
	require.NoError(t, err)
	assert.Equal(t, models.RefundRequestCompleted, done.Status)
	assert.Equal(t, "ops@bookpay", done.ProcessedBy)
	require.NotNil(t, done.ProcessedAt)

	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, current.Status)

	b, err := f.balances.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), b.TotalRevenue)
	assert.Equal(t, int64(300_000), b.TotalRefunded)
	assert.Equal(t, int64(0), b.PendingWithdrawal)
	assert.Equal(t, int64(650_000), b.AvailableBalance)
	require.NoError(t, f.balances.VerifyLedger(ctx, 1))

	// Completing twice is refused.
	_, err = f.svc.CompleteRefundRequest(ctx, req.ID, "ops@bookpay", "again")
	require.ErrorIs(t, err, apperrors.ErrRequestNotActionable)
}

func TestRejectRefundRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.seedPayment(t, models.PaymentStatusCompleted, 300_000)

	req, err := f.svc.QueueManualRefund(ctx, ManualRefundInput{
		PaymentID:     payment.ID,
		Reason:        "changed mind",
		BankCode:      "970422",
		AccountNumber: "001122334455",
	})
	require.NoError(t, err)

	rejected, err := f.svc.RejectRefundRequest(ctx, req.ID, "ops@bookpay", "outside refund policy")
	require.NoError(t, err)
	assert.Equal(t, models.RefundRequestRejected, rejected.Status)

	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, current.Status)
}

func TestCompleteRefundRequestNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CompleteRefundRequest(context.Background(), "missing", "ops", "")
	require.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}
