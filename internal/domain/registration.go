package domain

import (
	"time"
)

// RegistrationStatus represents the status of a registration
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
	RegistrationStatusRefunded  RegistrationStatus = "refunded"
)

// IsValid checks if the registration status is valid
func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed,
		RegistrationStatusCancelled, RegistrationStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s RegistrationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status accepts no further transitions.
func (s RegistrationStatus) IsTerminal() bool {
	return s == RegistrationStatusCancelled || s == RegistrationStatusRefunded
}

// CanTransitionTo checks if the status can move to the target status.
// pending -> confirmed | cancelled; confirmed -> cancelled | refunded.
func (s RegistrationStatus) CanTransitionTo(target RegistrationStatus) bool {
	switch s {
	case RegistrationStatusPending:
		return target == RegistrationStatusConfirmed || target == RegistrationStatusCancelled
	case RegistrationStatusConfirmed:
		return target == RegistrationStatusCancelled || target == RegistrationStatusRefunded
	}
	return false
}

// Registration represents an attendee's ticket order against one tier.
type Registration struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	TierID  string `json:"tier_id"`
	UserID  string `json:"user_id"`

	Quantity int                `json:"quantity"`
	Status   RegistrationStatus `json:"status"`

	// Amount is the charged total in minor units of Currency.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`

	PaymentRef       string `json:"payment_ref,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
	StatusReason     string `json:"status_reason,omitempty"`
	IdempotencyKey   string `json:"idempotency_key,omitempty"`

	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`

	// ExpiresAt bounds how long a pending reservation holds inventory.
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Validate validates the registration fields
func (r *Registration) Validate() error {
	if r.UserID == "" {
		return ErrInvalidUserID
	}
	if r.EventID == "" {
		return ErrInvalidEventID
	}
	if r.TierID == "" {
		return ErrInvalidTierID
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !r.Status.IsValid() {
		return ErrInvalidRegistrationStatus
	}
	return nil
}

// IsExpired reports whether a pending reservation has passed its hold window.
func (r *Registration) IsExpired(now time.Time) bool {
	return r.Status == RegistrationStatusPending && now.After(r.ExpiresAt)
}
