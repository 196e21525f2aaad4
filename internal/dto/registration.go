package dto

import (
	"time"

	"github.com/attendly/ticketing/internal/domain"
)

// CreateRegistrationRequest represents request to register for an event
type CreateRegistrationRequest struct {
	EventID        string `json:"event_id" binding:"required"`
	TierID         string `json:"tier_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CreateRegistrationResponse represents response after creating a registration
type CreateRegistrationResponse struct {
	RegistrationID   string    `json:"registration_id"`
	Status           string    `json:"status"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	ExpiresAt        time.Time `json:"expires_at"`
	ConfirmationCode string    `json:"confirmation_code,omitempty"`
	PaymentRef       string    `json:"payment_ref,omitempty"`
}

// ConfirmPaymentRequest represents request to confirm a pending registration
type ConfirmPaymentRequest struct {
	PaymentRef string `json:"payment_ref" binding:"required"`
}

// ConfirmPaymentResponse represents response after confirming payment
type ConfirmPaymentResponse struct {
	RegistrationID   string    `json:"registration_id"`
	Status           string    `json:"status"`
	ConfirmationCode string    `json:"confirmation_code"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}

// CancelRegistrationRequest represents request to cancel a registration
type CancelRegistrationRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelRegistrationResponse represents response after cancelling
type CancelRegistrationResponse struct {
	RegistrationID string `json:"registration_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

// CheckInRequest represents request to check in an attendee
type CheckInRequest struct {
	ConfirmationCode string `json:"confirmation_code" binding:"required"`
}

// CheckInResponse represents response after a check-in attempt
type CheckInResponse struct {
	RegistrationID   string    `json:"registration_id"`
	CheckedInAt      time.Time `json:"checked_in_at"`
	Quantity         int       `json:"quantity"`
	AlreadyCheckedIn bool      `json:"already_checked_in"`
}

// RegistrationResponse represents a registration in API responses
type RegistrationResponse struct {
	ID               string     `json:"id"`
	EventID          string     `json:"event_id"`
	TierID           string     `json:"tier_id"`
	UserID           string     `json:"user_id"`
	Quantity         int        `json:"quantity"`
	Status           string     `json:"status"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	ConfirmationCode string     `json:"confirmation_code,omitempty"`
	StatusReason     string     `json:"status_reason,omitempty"`
	CheckedIn        bool       `json:"checked_in"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	CreatedAt        time.Time  `json:"created_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

// PaginatedResponse wraps a list with paging info
type PaginatedResponse struct {
	Items    interface{} `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Count    int         `json:"count"`
}

// RegistrationFromDomain converts a domain Registration to RegistrationResponse
func RegistrationFromDomain(r *domain.Registration) *RegistrationResponse {
	return &RegistrationResponse{
		ID:               r.ID,
		EventID:          r.EventID,
		TierID:           r.TierID,
		UserID:           r.UserID,
		Quantity:         r.Quantity,
		Status:           string(r.Status),
		Amount:           r.Amount,
		Currency:         r.Currency,
		ConfirmationCode: r.ConfirmationCode,
		StatusReason:     r.StatusReason,
		CheckedIn:        r.CheckedIn,
		CheckedInAt:      r.CheckedInAt,
		ExpiresAt:        r.ExpiresAt,
		CreatedAt:        r.CreatedAt,
		ConfirmedAt:      r.ConfirmedAt,
		CancelledAt:      r.CancelledAt,
	}
}
