package reconciliation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"bookpay/internal/models"
)

// SchedulerConfig holds configuration for the periodic run.
type SchedulerConfig struct {
	// Interval is how often a pass runs.
	Interval time.Duration
	// RunTimeout bounds one full pass.
	RunTimeout time.Duration
	// Methods are the payment methods each pass reconciles.
	Methods []string
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   24 * time.Hour,
		RunTimeout: 10 * time.Minute,
		Methods:    []string{models.PaymentMethodPayOS},
	}
}

// Scheduler runs reconciliation periodically over the previous day's
// window for each configured method.
type Scheduler struct {
	svc    Service
	config SchedulerConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(svc Service, config SchedulerConfig) *Scheduler {
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.RunTimeout == 0 {
		config.RunTimeout = 10 * time.Minute
	}
	if len(config.Methods) == 0 {
		config.Methods = []string{models.PaymentMethodPayOS}
	}
	return &Scheduler{
		svc:    svc,
		config: config,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("reconciliation scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	log.Println("reconciliation scheduler started")

	s.wg.Add(1)
	go s.loop()
	return nil
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("reconciliation scheduler not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	log.Println("reconciliation scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	// One pass right away; a process restarted mid-cycle must not
	// wait a full interval before reconciling yesterday's window.
	s.runPass()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runPass()
		}
	}
}

func (s *Scheduler) runPass() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	yesterday := time.Now().AddDate(0, 0, -1)
	for _, method := range s.config.Methods {
		run, err := s.svc.RunReconciliation(ctx, yesterday, method)
		if err != nil {
			log.Printf("scheduled reconciliation for %s failed: %v", method, err)
			continue
		}
		if run.Status == models.ReconciliationStatusDiscrepancies {
			log.Printf("scheduled reconciliation for %s found %d discrepancies, %d unmatched",
				method, run.DiscrepancyCount, run.UnmatchedCount)
		}
	}
}
