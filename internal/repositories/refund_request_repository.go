package repositories

import (
	"fmt"

	"bookpay/internal/models"

	"gorm.io/gorm"
)

// RefundRequestRepository persists refunds queued for operator action.
type RefundRequestRepository interface {
	Create(req *models.RefundRequest) error
	Save(req *models.RefundRequest) error
	GetByID(id string) (*models.RefundRequest, error)
	// ActiveForPayment returns the QUEUED or PENDING request for a
	// payment, if one exists.
	ActiveForPayment(paymentID uint) (*models.RefundRequest, error)
	ListByStatus(status string) ([]models.RefundRequest, error)
}

type refundRequestRepository struct {
	db *gorm.DB
}

func NewRefundRequestRepository(db *gorm.DB) RefundRequestRepository {
	return &refundRequestRepository{db: db}
}

func (r *refundRequestRepository) Create(req *models.RefundRequest) error {
	if err := r.db.Create(req).Error; err != nil {
		return fmt.Errorf("failed to create refund request: %w", err)
	}
	return nil
}

func (r *refundRequestRepository) Save(req *models.RefundRequest) error {
	if err := r.db.Save(req).Error; err != nil {
		return fmt.Errorf("failed to save refund request: %w", err)
	}
	return nil
}

func (r *refundRequestRepository) GetByID(id string) (*models.RefundRequest, error) {
	var req models.RefundRequest
	if err := r.db.First(&req, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRefundRequestNotFound
		}
		return nil, fmt.Errorf("failed to get refund request: %w", err)
	}
	return &req, nil
}

func (r *refundRequestRepository) ActiveForPayment(paymentID uint) (*models.RefundRequest, error) {
	var req models.RefundRequest
	err := r.db.Where("payment_id = ? AND status IN ?", paymentID,
		[]string{models.RefundRequestQueued, models.RefundRequestPending}).
		First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRefundRequestNotFound
		}
		return nil, fmt.Errorf("failed to find active refund request: %w", err)
	}
	return &req, nil
}

func (r *refundRequestRepository) ListByStatus(status string) ([]models.RefundRequest, error) {
	var reqs []models.RefundRequest
	err := r.db.Where("status = ?", status).Order("requested_at ASC").Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refund requests: %w", err)
	}
	return reqs, nil
}
