package repositories

import (
	"fmt"
	"time"

	"bookpay/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository persists customer payments.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByOrderCode(orderCode int64) (*models.Payment, error)
	Save(payment *models.Payment) error
	// UpdateStatusIfCurrent transitions status only when the stored
	// status still equals from; returns false when the row moved on.
	UpdateStatusIfCurrent(id uint, from, to string) (bool, error)
	ListByDateAndMethod(date time.Time, method string) ([]models.Payment, error)
	ListByStatus(status string) ([]models.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *models.Payment) error {
	if err := r.db.Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByOrderCode(orderCode int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("order_code = ?", orderCode).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) Save(payment *models.Payment) error {
	if err := r.db.Save(payment).Error; err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) UpdateStatusIfCurrent(id uint, from, to string) (bool, error) {
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update payment status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *paymentRepository) ListByDateAndMethod(date time.Time, method string) ([]models.Payment, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.Add(24 * time.Hour)

	var payments []models.Payment
	err := r.db.Where("method = ? AND created_at >= ? AND created_at < ?", method, start, end).
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) ListByStatus(status string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("status = ?", status).Order("id ASC").Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by status: %w", err)
	}
	return payments, nil
}
