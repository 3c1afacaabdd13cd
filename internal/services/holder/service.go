// Package holder resolves the registered holder name for customer
// bank accounts before a queued refund is handed to an operator.
package holder

import (
	"context"
	"errors"
	"log"
	"regexp"
)

var ErrUnresolved = errors.New("account holder could not be resolved")

// Provider is one resolution source. Providers are consulted in
// order; the first non-empty answer wins.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, accountNumber, bankCode string) (string, error)
}

type Service interface {
	ResolveHolderName(ctx context.Context, accountNumber, bankCode string) (string, error)
	IsValidBankAccount(accountNumber, bankCode string) bool
	BankName(bankCode string) string
}

// Vietnamese NAPAS bank codes supported for refund transfers.
var bankNames = map[string]string{
	"970415": "VietinBank",
	"970416": "Agribank",
	"970418": "BIDV",
	"970422": "MB Bank",
	"970423": "ACB",
	"970427": "Sacombank",
	"970436": "Vietcombank",
	"970407": "Techcombank",
}

var accountNumberPattern = regexp.MustCompile(`^\d{8,15}$`)

type service struct {
	providers []Provider
}

func NewService(providers ...Provider) Service {
	return &service{providers: providers}
}

func (s *service) ResolveHolderName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	for _, p := range s.providers {
		name, err := p.Resolve(ctx, accountNumber, bankCode)
		if err != nil {
			log.Printf("holder lookup via %s failed for bank %s: %v", p.Name(), bankCode, err)
			continue
		}
		if name != "" {
			return name, nil
		}
	}
	return "", ErrUnresolved
}

func (s *service) IsValidBankAccount(accountNumber, bankCode string) bool {
	if !accountNumberPattern.MatchString(accountNumber) {
		return false
	}
	_, ok := bankNames[bankCode]
	return ok
}

func (s *service) BankName(bankCode string) string {
	return bankNames[bankCode]
}
