package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "bookpay/internal/errors"
	"bookpay/internal/gateway"
	"bookpay/internal/gateway/payos"
	"bookpay/internal/models"
	"bookpay/internal/repositories"
)

type stubLookup struct {
	transactions map[int64]*payos.Transaction
	err          error
	calls        int
}

func (l *stubLookup) GetTransaction(ctx context.Context, orderCode int64) (*payos.Transaction, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	tx, ok := l.transactions[orderCode]
	if !ok {
		return nil, &gateway.RejectedError{Provider: "payos", Code: "101", Desc: "not found"}
	}
	return tx, nil
}

type fixture struct {
	svc      Service
	payments repositories.PaymentRepository
	runs     repositories.ReconciliationRepository
	lookup   *stubLookup
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
	runs := repositories.NewReconciliationRepository(db)
	lookup := &stubLookup{transactions: make(map[int64]*payos.Transaction)}

	return &fixture{
		svc:      NewService(runs, payments, lookup),
		payments: payments,
		runs:     runs,
		lookup:   lookup,
	}
}

func (f *fixture) seedPayment(t *testing.T, orderCode int64, amount int64, status string) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		OrderCode: orderCode,
		AccountID: 1,
		Amount:    amount,
		Method:    models.PaymentMethodPayOS,
		Status:    status,
	}
	require.NoError(t, f.payments.Create(payment))
	return payment
}

func (f *fixture) gatewayHas(orderCode, amount int64, status string) {
	f.lookup.transactions[orderCode] = &payos.Transaction{
		OrderCode: orderCode,
		Amount:    amount,
		Status:    status,
	}
}

func TestRunAllMatched(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, 101, 150_000, models.PaymentStatusCompleted)
	f.seedPayment(t, 102, 80_000, models.PaymentStatusRefunded)
	f.gatewayHas(101, 150_000, "PAID")
	f.gatewayHas(102, 80_000, "REFUNDED")

	run, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)

	assert.Equal(t, models.ReconciliationStatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalTransactions)
	assert.Equal(t, 2, run.MatchedCount)
	assert.Equal(t, 0, run.DiscrepancyCount)
	assert.Equal(t, 0, run.UnmatchedCount)
	require.NotNil(t, run.FinishedAt)
}

func TestRunAmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, 101, 100, models.PaymentStatusCompleted)
	f.gatewayHas(101, 90, "PAID")

	run, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)

	assert.Equal(t, models.ReconciliationStatusDiscrepancies, run.Status)
	assert.Equal(t, 1, run.DiscrepancyCount)

	details, err := f.runs.ListDetails(run.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, models.ReconciliationDiscrepancy, details[0].Classification)
	assert.Equal(t, models.DiscrepancyAmountMismatch, details[0].Reason)
	assert.Equal(t, int64(-10), details[0].AmountDelta)
}

func TestRunStatusMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, 101, 100_000, models.PaymentStatusCompleted)
	f.gatewayHas(101, 100_000, "CANCELLED")

	run, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)

	details, err := f.runs.ListDetails(run.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, models.DiscrepancyStatusMismatch, details[0].Reason)
	assert.Contains(t, details[0].Message, "internal COMPLETED")
	assert.Contains(t, details[0].Message, "gateway CANCELLED")
}

func TestRunUnresolvedRefundAlwaysReported(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, 101, 100_000, models.PaymentStatusRefundPending)
	f.gatewayHas(101, 100_000, "REFUNDED")

	run, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)

	assert.Equal(t, models.ReconciliationStatusDiscrepancies, run.Status)
	details, err := f.runs.ListDetails(run.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, models.DiscrepancyStatusMismatch, details[0].Reason)
}

func TestRunUnmatched(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, 101, 100_000, models.PaymentStatusCompleted)
	// Gateway has no record for 101.

	run, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)

	assert.Equal(t, models.ReconciliationStatusDiscrepancies, run.Status)
	assert.Equal(t, 1, run.UnmatchedCount)

	details, err := f.runs.ListDetails(run.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, models.ReconciliationUnmatched, details[0].Classification)
	assert.Equal(t, models.DiscrepancyGatewayMissing, details[0].Reason)
}

func TestRunNeverMutatesPayments(t *testing.T) {
	f := newFixture(t)
	payment := f.seedPayment(t, 101, 100, models.PaymentStatusCompleted)
	f.gatewayHas(101, 90, "CANCELLED")

	_, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)

	current, err := f.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, current.Status)
	assert.Equal(t, int64(100), current.Amount)
}

func TestRerunSupersedesPriorRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment(t, 101, 100_000, models.PaymentStatusCompleted)
	f.gatewayHas(101, 100_000, "PAID")

	first, err := f.svc.RunReconciliation(ctx, time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)

	second, err := f.svc.RunReconciliation(ctx, time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = f.svc.GetRun(ctx, first.ID)
	require.ErrorIs(t, err, apperrors.ErrRunNotFound)

	current, err := f.svc.GetRun(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.TotalTransactions)
	assert.Len(t, current.Details, 1)
}

func TestRunGatewayOutageFailsRun(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, 101, 100_000, models.PaymentStatusCompleted)
	f.lookup.err = errors.New("connection refused")

	run, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.Error(t, err)
	assert.Nil(t, run)
}

func TestRunWindowFiltersOtherMethods(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, 101, 100_000, models.PaymentStatusCompleted)
	card := &models.Payment{
		OrderCode: 202, AccountID: 1, Amount: 50_000,
		Method: models.PaymentMethodCard, Status: models.PaymentStatusCompleted,
	}
	require.NoError(t, f.payments.Create(card))
	f.gatewayHas(101, 100_000, "PAID")

	run, err := f.svc.RunReconciliation(context.Background(), time.Now(), models.PaymentMethodPayOS)
	require.NoError(t, err)
	assert.Equal(t, 1, run.TotalTransactions)
}
