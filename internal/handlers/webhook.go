package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"bookpay/internal/models"
	"bookpay/internal/repositories"
	"bookpay/internal/services/balance"
	"bookpay/internal/utils"
)

// WebhookVerifier checks a webhook body signature.
type WebhookVerifier interface {
	VerifyWebhook(body []byte, signature string) bool
}

type WebhookHandler struct {
	payments repositories.PaymentRepository
	balances balance.Service
	verifier WebhookVerifier
}

func NewWebhookHandler(payments repositories.PaymentRepository, balances balance.Service, verifier WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		balances: balances,
		verifier: verifier,
	}
}

type payosWebhookPayload struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Success bool   `json:"success"`
	Data    struct {
		OrderCode int64  `json:"orderCode"`
		Amount    int64  `json:"amount"`
		Code      string `json:"code"`
	} `json:"data"`
}

// HandlePayOS processes a payment confirmation from PayOS. The raw
// body carries the HMAC signature in the x-payos-signature header.
// Redelivery of a processed confirmation is acknowledged without a
// second revenue credit.
func (h *WebhookHandler) HandlePayOS(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("x-payos-signature")
	if signature == "" || !h.verifier.VerifyWebhook(body, signature) {
		log.Printf("rejected webhook with bad signature from %s", c.IP())
		return utils.BadRequest(c, "invalid signature")
	}

	var payload payosWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return utils.BadRequest(c, "invalid webhook body")
	}

	if payload.Code != "00" || !payload.Success {
		// Not a successful payment event; acknowledge and drop it.
		log.Printf("ignoring webhook for order %d: code=%s", payload.Data.OrderCode, payload.Code)
		return utils.Success(c, fiber.Map{"success": true})
	}

	payment, err := h.payments.GetByOrderCode(payload.Data.OrderCode)
	if err != nil {
		if err == repositories.ErrPaymentNotFound {
			log.Printf("webhook for unknown order %d", payload.Data.OrderCode)
			return utils.NotFound(c, "payment not found")
		}
		return respondError(c, err)
	}

	moved, err := h.payments.UpdateStatusIfCurrent(payment.ID, models.PaymentStatusPending, models.PaymentStatusCompleted)
	if err != nil {
		return respondError(c, err)
	}
	if !moved {
		return utils.Success(c, fiber.Map{"success": true, "message": "already processed"})
	}

	if err := h.balances.AddRevenue(c.Context(), payment.AccountID, payment.Amount); err != nil {
		// Put the payment back so redelivery retries the credit
		// instead of hitting the already-processed branch.
		log.Printf("failed to credit revenue for order %d: %v", payment.OrderCode, err)
		if _, rerr := h.payments.UpdateStatusIfCurrent(payment.ID, models.PaymentStatusCompleted, models.PaymentStatusPending); rerr != nil {
			log.Printf("failed to revert payment %d to pending: %v", payment.ID, rerr)
		}
		return respondError(c, err)
	}

	now := time.Now()
	payment.Status = models.PaymentStatusCompleted
	payment.PaidAt = &now
	if err := h.payments.Save(payment); err != nil {
		// Revenue is credited and the status is COMPLETED; only the
		// paid-at timestamp is missing.
		log.Printf("failed to stamp paid-at on payment %d: %v", payment.ID, err)
	}

	return utils.Success(c, fiber.Map{"success": true})
}
