package balance

import (
	"context"
	"fmt"
	"log"

	"bookpay/internal/errors"
	"bookpay/internal/models"
	"bookpay/internal/repositories"
)

const defaultMinimumWithdrawal = 100_000 // VND

type service struct {
	repo   repositories.BalanceRepository
	cache  Cache
	config Config
	locks  *accountLocker
}

// NewService creates a new balance engine.
func NewService(repo repositories.BalanceRepository, cache Cache, config Config) Service {
	if repo == nil {
		panic("repo is required")
	}

	if config.DefaultCommissionRate == 0 {
		config.DefaultCommissionRate = 7.0
	}
	if config.DefaultCommissionType == "" {
		config.DefaultCommissionType = models.CommissionTypePercentage
	}
	if config.MinimumWithdrawal == 0 {
		config.MinimumWithdrawal = defaultMinimumWithdrawal
	}

	return &service{
		repo:   repo,
		cache:  cache,
		config: config,
		locks:  newAccountLocker(),
	}
}

func (s *service) GetOrCreateBalance(ctx context.Context, accountID uint) (*models.AccountBalance, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()
	return s.getOrCreate(s.repo, accountID)
}

// getOrCreate must run under the account lock. The repository create
// is conflict-safe as well, so at most one row survives a racing
// first-access from another process.
func (s *service) getOrCreate(repo repositories.BalanceRepository, accountID uint) (*models.AccountBalance, error) {
	balance, err := repo.GetByAccountID(accountID)
	if err == nil {
		return balance, nil
	}
	if err != repositories.ErrBalanceNotFound {
		return nil, err
	}

	balance = &models.AccountBalance{
		AccountID:             accountID,
		CommissionType:        s.config.DefaultCommissionType,
		CommissionRate:        s.config.DefaultCommissionRate,
		CommissionFixedAmount: s.config.DefaultCommissionFixed,
	}
	balance.Recalculate()

	if err := repo.Create(balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (s *service) GetBalance(ctx context.Context, accountID uint) (*BalanceView, error) {
	if s.cache != nil {
		var view BalanceView
		if found, err := s.cache.Get(ctx, s.cache.BalanceKey(accountID), &view); err == nil && found {
			return &view, nil
		}
	}

	balance, err := s.GetOrCreateBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	view := newView(balance, s.config.MinimumWithdrawal)
	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.BalanceKey(accountID), view); err != nil {
			log.Printf("failed to cache balance view for account %d: %v", accountID, err)
		}
	}
	return view, nil
}

// mutate runs fn against the account's balance under the per-account
// lock and inside one repository transaction, then invalidates the
// cached view. Ledger appends issued by fn commit with the balance
// save or not at all.
func (s *service) mutate(ctx context.Context, accountID uint, fn func(tx repositories.BalanceRepository, b *models.AccountBalance) error) error {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	err := s.repo.ExecuteInTransaction(func(tx repositories.BalanceRepository) error {
		balance, err := s.getOrCreate(tx, accountID)
		if err != nil {
			return err
		}
		if err := fn(tx, balance); err != nil {
			return err
		}
		return tx.Save(balance)
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		if cerr := s.cache.InvalidateBalance(ctx, accountID); cerr != nil {
			log.Printf("failed to invalidate balance cache for account %d: %v", accountID, cerr)
		}
	}
	return nil
}

func (s *service) AddRevenue(ctx context.Context, accountID uint, amount int64) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}

	return s.mutate(ctx, accountID, func(tx repositories.BalanceRepository, b *models.AccountBalance) error {
		prevCommission := b.TotalCommission
		b.AddRevenue(amount)

		if err := tx.AppendLedger(&models.LedgerEntry{
			AccountID:   accountID,
			Type:        models.LedgerTypeRevenue,
			Amount:      amount,
			Status:      models.LedgerStatusCompleted,
			Description: "booking revenue",
		}); err != nil {
			return err
		}

		// Audit entry for the commission accrued by this credit. The
		// commission itself is always re-derived from the rate.
		if delta := b.TotalCommission - prevCommission; delta != 0 {
			if err := tx.AppendLedger(&models.LedgerEntry{
				AccountID:   accountID,
				Type:        models.LedgerTypeCommission,
				Amount:      delta,
				Status:      models.LedgerStatusCompleted,
				Description: "platform commission accrual",
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) LockBalance(ctx context.Context, accountID uint, amount int64) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}

	return s.mutate(ctx, accountID, func(tx repositories.BalanceRepository, b *models.AccountBalance) error {
		if !b.HasEnoughBalance(amount) {
			return errors.ErrInsufficientBalance.WithDetail("available %d, requested %d", b.AvailableBalance, amount)
		}

		b.Lock(amount)
		return tx.AppendLedger(&models.LedgerEntry{
			AccountID:   accountID,
			Type:        models.LedgerTypeLock,
			Amount:      amount,
			Status:      models.LedgerStatusCompleted,
			Description: "withdrawal hold",
		})
	})
}

func (s *service) UnlockBalance(ctx context.Context, accountID uint, amount int64) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}

	return s.mutate(ctx, accountID, func(tx repositories.BalanceRepository, b *models.AccountBalance) error {
		if amount > b.PendingWithdrawal {
			return errors.ErrInvalidAmount.WithDetail("unlock %d exceeds pending %d", amount, b.PendingWithdrawal)
		}

		b.Unlock(amount)
		return tx.AppendLedger(&models.LedgerEntry{
			AccountID:   accountID,
			Type:        models.LedgerTypeUnlock,
			Amount:      amount,
			Status:      models.LedgerStatusCompleted,
			Description: "withdrawal hold released",
		})
	})
}

func (s *service) ConfirmWithdrawal(ctx context.Context, accountID uint, amount int64) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}

	return s.mutate(ctx, accountID, func(tx repositories.BalanceRepository, b *models.AccountBalance) error {
		if amount > b.PendingWithdrawal {
			return errors.ErrInvalidAmount.WithDetail("settle %d exceeds pending %d", amount, b.PendingWithdrawal)
		}

		b.ConfirmWithdrawal(amount)
		return tx.AppendLedger(&models.LedgerEntry{
			AccountID:   accountID,
			Type:        models.LedgerTypeWithdrawalSettled,
			Amount:      amount,
			Status:      models.LedgerStatusCompleted,
			Description: "withdrawal settled",
		})
	})
}

func (s *service) SettleRefund(ctx context.Context, accountID uint, amount int64, reference string) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}

	return s.mutate(ctx, accountID, func(tx repositories.BalanceRepository, b *models.AccountBalance) error {
		if amount > b.PendingWithdrawal {
			return errors.ErrInvalidAmount.WithDetail("refund settle %d exceeds pending %d", amount, b.PendingWithdrawal)
		}

		b.DebitRefund(amount)

		if err := tx.AppendLedger(&models.LedgerEntry{
			AccountID:   accountID,
			Type:        models.LedgerTypeUnlock,
			Amount:      amount,
			Status:      models.LedgerStatusCompleted,
			Description: "refund hold released",
			Reference:   reference,
		}); err != nil {
			return err
		}
		return tx.AppendLedger(&models.LedgerEntry{
			AccountID:   accountID,
			Type:        models.LedgerTypeRefundDebit,
			Amount:      amount,
			Status:      models.LedgerStatusCompleted,
			Description: "refund debit",
			Reference:   reference,
		})
	})
}

// replay rebuilds an account's accrual fields from its ledger history
// in creation order. Commission entries are audit-only and skipped;
// commission is re-derived from the account's commission config.
func replay(base *models.AccountBalance, entries []models.LedgerEntry) *models.AccountBalance {
	rebuilt := &models.AccountBalance{
		ID:                    base.ID,
		AccountID:             base.AccountID,
		CommissionType:        base.CommissionType,
		CommissionRate:        base.CommissionRate,
		CommissionFixedAmount: base.CommissionFixedAmount,
		CreatedAt:             base.CreatedAt,
	}

	for _, e := range entries {
		switch e.Type {
		case models.LedgerTypeRevenue:
			rebuilt.TotalRevenue += e.Amount
			rebuilt.TotalBookingsCompleted++
		case models.LedgerTypeLock:
			rebuilt.PendingWithdrawal += e.Amount
		case models.LedgerTypeUnlock:
			rebuilt.PendingWithdrawal -= e.Amount
			if rebuilt.PendingWithdrawal < 0 {
				rebuilt.PendingWithdrawal = 0
			}
		case models.LedgerTypeWithdrawalSettled:
			rebuilt.PendingWithdrawal -= e.Amount
			if rebuilt.PendingWithdrawal < 0 {
				rebuilt.PendingWithdrawal = 0
			}
			rebuilt.TotalWithdrawn += e.Amount
			rebuilt.TotalWithdrawalRequests++
			at := e.CreatedAt
			rebuilt.LastWithdrawalAt = &at
		case models.LedgerTypeRefundDebit:
			rebuilt.TotalRefunded += e.Amount
		}
	}

	rebuilt.Recalculate()
	return rebuilt
}

func drift(maintained, rebuilt *models.AccountBalance) string {
	switch {
	case maintained.TotalRevenue != rebuilt.TotalRevenue:
		return fmt.Sprintf("total_revenue maintained=%d replayed=%d", maintained.TotalRevenue, rebuilt.TotalRevenue)
	case maintained.TotalWithdrawn != rebuilt.TotalWithdrawn:
		return fmt.Sprintf("total_withdrawn maintained=%d replayed=%d", maintained.TotalWithdrawn, rebuilt.TotalWithdrawn)
	case maintained.PendingWithdrawal != rebuilt.PendingWithdrawal:
		return fmt.Sprintf("pending_withdrawal maintained=%d replayed=%d", maintained.PendingWithdrawal, rebuilt.PendingWithdrawal)
	case maintained.TotalRefunded != rebuilt.TotalRefunded:
		return fmt.Sprintf("total_refunded maintained=%d replayed=%d", maintained.TotalRefunded, rebuilt.TotalRefunded)
	case maintained.TotalCommission != rebuilt.TotalCommission:
		return fmt.Sprintf("total_commission maintained=%d replayed=%d", maintained.TotalCommission, rebuilt.TotalCommission)
	case maintained.AvailableBalance != rebuilt.AvailableBalance:
		return fmt.Sprintf("available_balance maintained=%d replayed=%d", maintained.AvailableBalance, rebuilt.AvailableBalance)
	case maintained.TotalBookingsCompleted != rebuilt.TotalBookingsCompleted:
		return fmt.Sprintf("bookings maintained=%d replayed=%d", maintained.TotalBookingsCompleted, rebuilt.TotalBookingsCompleted)
	}
	return ""
}

func (s *service) RecalculateFromLedger(ctx context.Context, accountID uint) (*models.AccountBalance, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	var rebuilt *models.AccountBalance
	err := s.repo.ExecuteInTransaction(func(tx repositories.BalanceRepository) error {
		maintained, err := s.getOrCreate(tx, accountID)
		if err != nil {
			return err
		}

		entries, err := tx.LedgerByAccount(accountID)
		if err != nil {
			return err
		}

		rebuilt = replay(maintained, entries)
		if maintained.LastWithdrawalAt != nil {
			rebuilt.LastWithdrawalAt = maintained.LastWithdrawalAt
		}

		if d := drift(maintained, rebuilt); d != "" {
			log.Printf("ledger drift on account %d: %s", accountID, d)
		}

		*maintained = *rebuilt
		return tx.Save(maintained)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cerr := s.cache.InvalidateBalance(ctx, accountID); cerr != nil {
			log.Printf("failed to invalidate balance cache for account %d: %v", accountID, cerr)
		}
	}
	return rebuilt, nil
}

func (s *service) RecalculateAll(ctx context.Context) error {
	ids, err := s.repo.ListAccountIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.RecalculateFromLedger(ctx, id); err != nil {
			return fmt.Errorf("recalculate account %d: %w", id, err)
		}
	}
	return nil
}

// VerifyLedger checks the maintained balance against a ledger replay
// without mutating anything. A mismatch is reported, never repaired.
func (s *service) VerifyLedger(ctx context.Context, accountID uint) error {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	maintained, err := s.repo.GetByAccountID(accountID)
	if err != nil {
		if err == repositories.ErrBalanceNotFound {
			return errors.ErrBalanceNotFound
		}
		return err
	}

	entries, err := s.repo.LedgerByAccount(accountID)
	if err != nil {
		return err
	}

	rebuilt := replay(maintained, entries)
	if d := drift(maintained, rebuilt); d != "" {
		log.Printf("ledger verification failed on account %d: %s", accountID, d)
		return errors.ErrConsistency.WithDetail("%s", d)
	}
	return nil
}
