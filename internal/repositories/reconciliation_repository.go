package repositories

import (
	"fmt"
	"time"

	"bookpay/internal/models"

	"gorm.io/gorm"
)

// ReconciliationRepository persists reconciliation runs and their
// per-payment detail rows.
type ReconciliationRepository interface {
	CreateRun(run *models.ReconciliationRun) error
	SaveRun(run *models.ReconciliationRun) error
	GetRun(id string) (*models.ReconciliationRun, error)
	// DeleteRunsForWindow removes prior runs (and their details) for a
	// date/method window so a re-run supersedes them.
	DeleteRunsForWindow(date time.Time, method string) error
	AppendDetail(detail *models.ReconciliationDetail) error
	ListDetails(runID string) ([]models.ReconciliationDetail, error)
}

type reconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) CreateRun(run *models.ReconciliationRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create reconciliation run: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) SaveRun(run *models.ReconciliationRun) error {
	if err := r.db.Save(run).Error; err != nil {
		return fmt.Errorf("failed to save reconciliation run: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) GetRun(id string) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	if err := r.db.Preload("Details").First(&run, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get reconciliation run: %w", err)
	}
	return &run, nil
}

func (r *reconciliationRepository) DeleteRunsForWindow(date time.Time, method string) error {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.Add(24 * time.Hour)

	return r.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Model(&models.ReconciliationRun{}).
			Where("payment_method = ? AND reconciliation_date >= ? AND reconciliation_date < ?", method, start, end).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to find prior runs: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("run_id IN ?", ids).Delete(&models.ReconciliationDetail{}).Error; err != nil {
			return fmt.Errorf("failed to delete prior run details: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.ReconciliationRun{}).Error; err != nil {
			return fmt.Errorf("failed to delete prior runs: %w", err)
		}
		return nil
	})
}

func (r *reconciliationRepository) AppendDetail(detail *models.ReconciliationDetail) error {
	if err := r.db.Create(detail).Error; err != nil {
		return fmt.Errorf("failed to append reconciliation detail: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) ListDetails(runID string) ([]models.ReconciliationDetail, error) {
	var details []models.ReconciliationDetail
	err := r.db.Where("run_id = ?", runID).Order("id ASC").Find(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation details: %w", err)
	}
	return details, nil
}
