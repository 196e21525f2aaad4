package domain

import "errors"

// Domain errors
var (
	// Registration errors
	ErrRegistrationNotFound      = errors.New("registration not found")
	ErrRegistrationExpired       = errors.New("registration reservation has expired")
	ErrRegistrationNotConfirmed  = errors.New("registration is not confirmed")
	ErrInvalidStateTransition    = errors.New("invalid registration state transition")
	ErrAlreadyConfirmed          = errors.New("registration already confirmed")
	ErrAlreadyCheckedIn          = errors.New("registration already checked in")
	ErrInvalidRegistrationStatus = errors.New("invalid registration status")

	// Capacity errors
	ErrInsufficientCapacity = errors.New("insufficient tier capacity")
	ErrMaxTicketsExceeded   = errors.New("maximum tickets per registration exceeded")

	// Tier errors
	ErrTierNotFound      = errors.New("ticket tier not found")
	ErrTierEventMismatch = errors.New("ticket tier does not belong to this event")
	ErrTierInUse         = errors.New("ticket tier has active registrations")

	// Event errors
	ErrEventNotFound      = errors.New("event not found")
	ErrEventNotOpen       = errors.New("event is not open for registration")
	ErrEventNotDraft      = errors.New("event is not in draft status")
	ErrInvalidEventStatus = errors.New("invalid event status")

	// Payment errors
	ErrPaymentFailed = errors.New("payment failed")

	// Validation errors
	ErrInvalidUserID         = errors.New("invalid user id")
	ErrInvalidRegistrationID = errors.New("invalid registration id")
	ErrInvalidEventID        = errors.New("invalid event id")
	ErrInvalidTierID         = errors.New("invalid tier id")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrInvalidCapacity       = errors.New("capacity must be greater than zero")
	ErrInvalidUnitPrice      = errors.New("unit price cannot be negative")
	ErrInvalidCurrency       = errors.New("unsupported currency")
	ErrInvalidEventName      = errors.New("event name is required")
	ErrInvalidTierName       = errors.New("tier name is required")
	ErrInvalidWindow         = errors.New("registration window closes before it opens")
	ErrAmountOverflow        = errors.New("order amount overflows")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRegistrationNotFound) ||
		errors.Is(err, ErrTierNotFound) ||
		errors.Is(err, ErrEventNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidRegistrationID) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidTierID) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidCapacity) ||
		errors.Is(err, ErrInvalidUnitPrice) ||
		errors.Is(err, ErrInvalidCurrency) ||
		errors.Is(err, ErrInvalidEventName) ||
		errors.Is(err, ErrInvalidTierName) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidRegistrationStatus) ||
		errors.Is(err, ErrAmountOverflow)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInsufficientCapacity) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrAlreadyConfirmed) ||
		errors.Is(err, ErrTierInUse) ||
		errors.Is(err, ErrTierEventMismatch) ||
		errors.Is(err, ErrMaxTicketsExceeded) ||
		errors.Is(err, ErrEventNotDraft)
}

// IsExpiredError checks if the error is an expiration error
func IsExpiredError(err error) bool {
	return errors.Is(err, ErrRegistrationExpired)
}
