package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"bookpay/internal/services/reconciliation"
	"bookpay/internal/utils"
)

type ReconciliationHandler struct {
	svc      reconciliation.Service
	validate *validator.Validate
}

func NewReconciliationHandler(svc reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

type runReconciliationRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Method string `json:"method" validate:"required,oneof=PAYOS CARD"`
}

// RunReconciliation triggers a reconciliation pass over one
// date/method window.
func (h *ReconciliationHandler) RunReconciliation(c *fiber.Ctx) error {
	var req runReconciliationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return utils.BadRequest(c, "date must be YYYY-MM-DD")
	}

	run, err := h.svc.RunReconciliation(c.Context(), date, req.Method)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, run)
}

// GetRun returns a reconciliation run with its detail rows.
func (h *ReconciliationHandler) GetRun(c *fiber.Ctx) error {
	run, err := h.svc.GetRun(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, run)
}
