package handlers

import (
	stderrors "errors"
	"log"

	"github.com/gofiber/fiber/v2"

	apperrors "bookpay/internal/errors"
	"bookpay/internal/utils"
)

// HTTP status per domain error code. Codes absent here are treated as
// internal failures.
var statusByCode = map[string]int{
	"BALANCE_NOT_FOUND":             fiber.StatusNotFound,
	"PAYMENT_NOT_FOUND":             fiber.StatusNotFound,
	"RUN_NOT_FOUND":                 fiber.StatusNotFound,
	"REFUND_REQUEST_NOT_FOUND":      fiber.StatusNotFound,
	"INVALID_AMOUNT":                fiber.StatusBadRequest,
	"NOT_REFUNDABLE":                fiber.StatusBadRequest,
	"INVALID_BANK_ACCOUNT":          fiber.StatusBadRequest,
	"INVALID_SIGNATURE":             fiber.StatusBadRequest,
	"REFUND_REQUEST_NOT_ACTIONABLE": fiber.StatusConflict,
	"INSUFFICIENT_BALANCE":          fiber.StatusUnprocessableEntity,
	"LEDGER_INCONSISTENT":           fiber.StatusConflict,
	"RECONCILIATION_RUNNING":        fiber.StatusConflict,
	"GATEWAY_ERROR":                 fiber.StatusBadGateway,
}

func respondError(c *fiber.Ctx, err error) error {
	var domain *apperrors.DomainError
	if stderrors.As(err, &domain) {
		status, ok := statusByCode[domain.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return utils.Respond(c, status, fiber.Map{
			"error": domain.Message,
			"code":  domain.Code,
		})
	}

	log.Printf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return utils.InternalError(c, "internal server error")
}
