package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeGateway implements PaymentGateway using Stripe PaymentIntents.
// Amounts pass through unchanged: both sides speak minor units.
type StripeGateway struct {
	config *StripeGatewayConfig
}

// StripeGatewayConfig holds configuration for Stripe gateway
type StripeGatewayConfig struct {
	SecretKey     string
	WebhookSecret string
	Environment   string // "test" or "live"
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// Charge creates a Stripe PaymentIntent for the registration
func (g *StripeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"registration_id": req.RegistrationID,
			"user_id":         req.UserID,
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return &ChargeResponse{
			Status:     ChargeStatusFailed,
			FailReason: err.Error(),
			CreatedAt:  time.Now(),
		}, nil
	}

	resp := &ChargeResponse{
		PaymentRef: pi.ID,
		CreatedAt:  time.Now(),
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		resp.Status = ChargeStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		resp.Status = ChargeStatusFailed
		resp.FailReason = "payment_canceled"
	default:
		// Requires a client-side step; the webhook settles the outcome.
		resp.Status = ChargeStatusPending
	}

	return resp, nil
}

// Refund refunds the full PaymentIntent
func (g *StripeGateway) Refund(ctx context.Context, paymentRef string) error {
	if paymentRef == "" {
		return fmt.Errorf("payment ref is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
	}

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// GetTransaction retrieves the PaymentIntent state
func (g *StripeGateway) GetTransaction(ctx context.Context, paymentRef string) (*TransactionInfo, error) {
	if paymentRef == "" {
		return nil, fmt.Errorf("payment ref is required")
	}

	pi, err := paymentintent.Get(paymentRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	info := &TransactionInfo{
		PaymentRef: pi.ID,
		Amount:     pi.Amount,
		Currency:   string(pi.Currency),
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		info.Status = ChargeStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		info.Status = ChargeStatusFailed
	default:
		info.Status = ChargeStatusPending
	}

	return info, nil
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// WebhookSecret exposes the signing secret for webhook verification
func (g *StripeGateway) WebhookSecret() string {
	return g.config.WebhookSecret
}

// Ensure StripeGateway implements PaymentGateway
var _ PaymentGateway = (*StripeGateway)(nil)
