// Package handlers exposes the HTTP surface over the balance, refund
// and reconciliation engines.
package handlers

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"bookpay/internal/services/balance"
	"bookpay/internal/utils"
)

type BalanceHandler struct {
	svc      balance.Service
	validate *validator.Validate
}

func NewBalanceHandler(svc balance.Service) *BalanceHandler {
	return &BalanceHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

type amountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func accountIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("accountID"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (h *BalanceHandler) parseAmount(c *fiber.Ctx) (int64, error) {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, err
	}
	if err := h.validate.Struct(req); err != nil {
		return 0, err
	}
	return req.Amount, nil
}

// GetBalance returns the cached balance view for a merchant account.
func (h *BalanceHandler) GetBalance(c *fiber.Ctx) error {
	accountID, err := accountIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid account id")
	}

	view, err := h.svc.GetBalance(c.Context(), accountID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, view)
}

// AddRevenue credits completed-booking revenue to the merchant.
func (h *BalanceHandler) AddRevenue(c *fiber.Ctx) error {
	return h.mutate(c, h.svc.AddRevenue)
}

// Lock places a withdrawal hold on available funds.
func (h *BalanceHandler) Lock(c *fiber.Ctx) error {
	return h.mutate(c, h.svc.LockBalance)
}

// Unlock releases a withdrawal hold.
func (h *BalanceHandler) Unlock(c *fiber.Ctx) error {
	return h.mutate(c, h.svc.UnlockBalance)
}

// Confirm settles a held withdrawal as paid out.
func (h *BalanceHandler) Confirm(c *fiber.Ctx) error {
	return h.mutate(c, h.svc.ConfirmWithdrawal)
}

func (h *BalanceHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, accountID uint, amount int64) error) error {
	accountID, err := accountIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid account id")
	}

	amount, err := h.parseAmount(c)
	if err != nil {
		return utils.BadRequest(c, "amount must be a positive integer")
	}

	if err := op(c.Context(), accountID, amount); err != nil {
		return respondError(c, err)
	}

	view, err := h.svc.GetBalance(c.Context(), accountID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, view)
}

type recalculateRequest struct {
	AccountID uint `json:"account_id"`
}

// Recalculate rebuilds balances from the ledger: one account when
// account_id is given, every account otherwise.
func (h *BalanceHandler) Recalculate(c *fiber.Ctx) error {
	var req recalculateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.BadRequest(c, "invalid request body")
		}
	}

	if req.AccountID == 0 {
		if err := h.svc.RecalculateAll(c.Context()); err != nil {
			return respondError(c, err)
		}
		return utils.Success(c, fiber.Map{"status": "recalculated"})
	}

	rebuilt, err := h.svc.RecalculateFromLedger(c.Context(), req.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, rebuilt)
}

// VerifyLedger checks one account's maintained balance against a
// ledger replay without changing anything.
func (h *BalanceHandler) VerifyLedger(c *fiber.Ctx) error {
	accountID, err := accountIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid account id")
	}

	if err := h.svc.VerifyLedger(c.Context(), accountID); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"status": "consistent"})
}
