package notification

import (
	"context"
	"log"
)

// Notifier delivers customer-facing messages. Delivery failures are
// logged by callers and never fail the financial operation that
// triggered them.
type Notifier interface {
	Notify(ctx context.Context, customerID uint, title, message string) error
}

// Service is a log-backed notifier. Production deployments swap in a
// push or email delivery behind the same interface.
type Service struct{}

func NewService() *Service { return &Service{} }

func (s *Service) Notify(ctx context.Context, customerID uint, title, message string) error {
	log.Printf("notify customer %d: %s - %s", customerID, title, message)
	return nil
}
