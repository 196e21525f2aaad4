package gateway

import (
	"context"
	"time"
)

// ChargeRequest describes a payment to collect. Amount is in minor units
// of Currency.
type ChargeRequest struct {
	RegistrationID string
	UserID         string
	Amount         int64
	Currency       string
	Description    string
	IdempotencyKey string
}

// ChargeStatus is the gateway-side state of a charge
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusFailed    ChargeStatus = "failed"
	ChargeStatusRefunded  ChargeStatus = "refunded"
)

// ChargeResponse is the gateway's answer to a charge request
type ChargeResponse struct {
	PaymentRef string
	Status     ChargeStatus
	FailReason string
	CreatedAt  time.Time
}

// TransactionInfo is the gateway's view of an existing charge
type TransactionInfo struct {
	PaymentRef string
	Status     ChargeStatus
	Amount     int64
	Currency   string
}

// PaymentGateway abstracts the payment provider. Implementations must be
// safe for concurrent use.
type PaymentGateway interface {
	// Charge collects payment for a registration. A failed charge is not
	// an error return; the response carries the failure.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// Refund returns a charge to the payer.
	Refund(ctx context.Context, paymentRef string) error

	// GetTransaction retrieves the current state of a charge.
	GetTransaction(ctx context.Context, paymentRef string) (*TransactionInfo, error)

	// Name identifies the provider in logs and events.
	Name() string
}
