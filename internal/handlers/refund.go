package handlers

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "bookpay/internal/errors"
	"bookpay/internal/services/refund"
	"bookpay/internal/utils"
)

type RefundHandler struct {
	svc      refund.Service
	validate *validator.Validate
}

func NewRefundHandler(svc refund.Service) *RefundHandler {
	return &RefundHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

type refundRequest struct {
	PaymentID uint   `json:"payment_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"gte=0"`
	Reason    string `json:"reason" validate:"required,max=255"`
}

type manualRefundRequest struct {
	PaymentID     uint   `json:"payment_id" validate:"required"`
	Reason        string `json:"reason" validate:"required,max=255"`
	BankCode      string `json:"bank_code" validate:"required,len=6"`
	AccountNumber string `json:"account_number" validate:"required,min=8,max=15,numeric"`
}

type operatorActionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// ProcessRefund refunds a completed payment through its gateway.
// A repeat of an applied refund responds 200 so retries are harmless.
func (h *RefundHandler) ProcessRefund(c *fiber.Ctx) error {
	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	payment, err := h.svc.ProcessRefund(c.Context(), req.PaymentID, req.Amount, req.Reason)
	if err != nil {
		switch {
		case stderrors.Is(err, apperrors.ErrAlreadyRefunded):
			return utils.Success(c, fiber.Map{
				"status": "already_refunded",
				"reason": "refund was already processed",
			})
		case stderrors.Is(err, apperrors.ErrRefundQueued):
			return utils.Respond(c, fiber.StatusAccepted, fiber.Map{
				"status": "queued",
				"reason": "insufficient merchant funds, refund queued for operator",
			})
		case stderrors.Is(err, apperrors.ErrGateway):
			return utils.Respond(c, fiber.StatusBadGateway, fiber.Map{
				"status": "failed",
				"reason": "payment gateway unavailable",
				"error":  err.Error(),
			})
		default:
			return respondError(c, err)
		}
	}

	return utils.Success(c, fiber.Map{
		"status":  "refunded",
		"payment": payment,
	})
}

// QueueManualRefund parks a refund for operator bank transfer.
func (h *RefundHandler) QueueManualRefund(c *fiber.Ctx) error {
	var req manualRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	request, err := h.svc.QueueManualRefund(c.Context(), refund.ManualRefundInput{
		PaymentID:     req.PaymentID,
		Reason:        req.Reason,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		if stderrors.Is(err, apperrors.ErrAlreadyRefunded) {
			return utils.Success(c, fiber.Map{
				"status": "already_refunded",
				"reason": "refund was already processed",
			})
		}
		return respondError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"status":  "queued",
		"request": request,
	})
}

// RefundablePayments lists payments eligible for refund.
func (h *RefundHandler) RefundablePayments(c *fiber.Ctx) error {
	payments, err := h.svc.RefundablePayments(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"payments": payments})
}

// ListRefundRequests lists operator-queue entries by status.
func (h *RefundHandler) ListRefundRequests(c *fiber.Ctx) error {
	status := c.Query("status", "QUEUED")
	requests, err := h.svc.ListRefundRequests(c.Context(), status)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"requests": requests})
}

// CompleteRefundRequest marks a queued refund as transferred.
func (h *RefundHandler) CompleteRefundRequest(c *fiber.Ctx) error {
	var req operatorActionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.BadRequest(c, "invalid request body")
		}
	}

	request, err := h.svc.CompleteRefundRequest(c.Context(), c.Params("id"), operatorSubject(c), req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"request": request})
}

// RejectRefundRequest refuses a queued refund and returns the payment
// to the refundable pool.
func (h *RefundHandler) RejectRefundRequest(c *fiber.Ctx) error {
	var req operatorActionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.BadRequest(c, "invalid request body")
		}
	}

	request, err := h.svc.RejectRefundRequest(c.Context(), c.Params("id"), operatorSubject(c), req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"request": request})
}

func operatorSubject(c *fiber.Ctx) string {
	if subject, ok := c.Locals("adminSubject").(string); ok {
		return subject
	}
	return "admin"
}
