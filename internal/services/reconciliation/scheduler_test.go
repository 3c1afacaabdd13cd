package reconciliation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookpay/internal/models"
)

type recordingService struct {
	mu      sync.Mutex
	methods []string
}

func (s *recordingService) RunReconciliation(ctx context.Context, date time.Time, method string) (*models.ReconciliationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = append(s.methods, method)
	return &models.ReconciliationRun{Status: models.ReconciliationStatusCompleted}, nil
}

func (s *recordingService) GetRun(ctx context.Context, id string) (*models.ReconciliationRun, error) {
	return nil, nil
}

func (s *recordingService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.methods)
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	svc := &recordingService{}
	scheduler := NewScheduler(svc, SchedulerConfig{
		Interval:   10 * time.Millisecond,
		RunTimeout: time.Second,
		Methods:    []string{models.PaymentMethodPayOS},
	})

	require.NoError(t, scheduler.Start())
	assert.True(t, scheduler.IsRunning())

	assert.Eventually(t, func() bool { return svc.count() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())
}

func TestSchedulerRunsFirstPassImmediately(t *testing.T) {
	svc := &recordingService{}
	scheduler := NewScheduler(svc, SchedulerConfig{
		Interval:   time.Hour,
		RunTimeout: time.Second,
		Methods:    []string{models.PaymentMethodPayOS},
	})

	require.NoError(t, scheduler.Start())
	assert.Eventually(t, func() bool { return svc.count() >= 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, scheduler.Stop())
	assert.Equal(t, 1, svc.count())
}

func TestSchedulerStartStopLifecycle(t *testing.T) {
	scheduler := NewScheduler(&recordingService{}, DefaultSchedulerConfig())

	require.NoError(t, scheduler.Start())
	require.Error(t, scheduler.Start())
	require.NoError(t, scheduler.Stop())
	require.Error(t, scheduler.Stop())

	// Restartable after a clean stop.
	require.NoError(t, scheduler.Start())
	require.NoError(t, scheduler.Stop())
}

func TestSchedulerRunsAllConfiguredMethods(t *testing.T) {
	svc := &recordingService{}
	scheduler := NewScheduler(svc, SchedulerConfig{
		Interval: 10 * time.Millisecond,
		Methods:  []string{models.PaymentMethodPayOS, models.PaymentMethodCard},
	})

	require.NoError(t, scheduler.Start())
	assert.Eventually(t, func() bool { return svc.count() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, scheduler.Stop())

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Contains(t, svc.methods, models.PaymentMethodPayOS)
	assert.Contains(t, svc.methods, models.PaymentMethodCard)
}
