// Package stripecard refunds card payments through Stripe.
package stripecard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/refund"

	"bookpay/internal/gateway"
	"bookpay/internal/models"
)

// Provider issues Stripe refunds against the payment intent recorded
// on the payment.
type Provider struct{}

func New(secretKey string) *Provider {
	stripe.Key = secretKey
	return &Provider{}
}

func (p *Provider) Refund(ctx context.Context, payment *models.Payment, amount int64, reason string) error {
	if payment.ProviderRef == "" {
		return &gateway.RejectedError{
			Provider: "stripe",
			Code:     "missing_payment_intent",
			Desc:     fmt.Sprintf("payment %d has no provider reference", payment.ID),
		}
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(payment.ProviderRef),
		Amount:        stripe.Int64(amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	// Resubmitting the same refund must not double-refund.
	params.SetIdempotencyKey("refund-" + strconv.FormatInt(payment.OrderCode, 10))
	params.AddMetadata("order_code", strconv.FormatInt(payment.OrderCode, 10))
	if reason != "" {
		params.AddMetadata("reason", reason)
	}

	if _, err := refund.New(params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return &gateway.RejectedError{
				Provider: "stripe",
				Code:     string(stripeErr.Code),
				Desc:     stripeErr.Msg,
			}
		}
		return fmt.Errorf("stripe: %w", err)
	}
	return nil
}
