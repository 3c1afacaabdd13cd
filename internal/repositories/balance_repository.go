package repositories

import (
	"fmt"

	"bookpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceRepository persists account balances and their ledger inside
// a single transactional boundary.
type BalanceRepository interface {
	GetByAccountID(accountID uint) (*models.AccountBalance, error)
	Create(balance *models.AccountBalance) error
	Save(balance *models.AccountBalance) error
	ListAccountIDs() ([]uint, error)
	AppendLedger(entry *models.LedgerEntry) error
	LedgerByAccount(accountID uint) ([]models.LedgerEntry, error)
	ExecuteInTransaction(fn func(tx BalanceRepository) error) error
}

type balanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) GetByAccountID(accountID uint) (*models.AccountBalance, error) {
	var balance models.AccountBalance
	if err := r.db.Where("account_id = ?", accountID).First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &balance, nil
}

// Create inserts a new balance row. Concurrent first-access for the
// same account must create at most one row, so conflicts on the
// account id are ignored and the surviving row is read back.
func (r *balanceRepository) Create(balance *models.AccountBalance) error {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoNothing: true,
	}).Create(balance)
	if result.Error != nil {
		return fmt.Errorf("failed to create balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		existing, err := r.GetByAccountID(balance.AccountID)
		if err != nil {
			return err
		}
		*balance = *existing
	}
	return nil
}

func (r *balanceRepository) Save(balance *models.AccountBalance) error {
	if err := r.db.Save(balance).Error; err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func (r *balanceRepository) ListAccountIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.AccountBalance{}).Pluck("account_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return ids, nil
}

func (r *balanceRepository) AppendLedger(entry *models.LedgerEntry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *balanceRepository) LedgerByAccount(accountID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return entries, nil
}

func (r *balanceRepository) ExecuteInTransaction(fn func(tx BalanceRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&balanceRepository{db: tx})
	})
}
