package repository

import (
	"context"
	"time"

	"github.com/attendly/ticketing/internal/domain"
)

// CounterBucket names a ledger counter that released inventory comes out of.
type CounterBucket string

const (
	BucketReserved  CounterBucket = "reserved"
	BucketConfirmed CounterBucket = "confirmed"
)

// TierLedger owns the capacity counters of ticket tiers. Every mutation is
// a single conditional update against the current counter values; callers
// never read counters and write them back.
type TierLedger interface {
	// Reserve atomically moves qty tickets from available to reserved.
	// Returns domain.ErrInsufficientCapacity when the tier cannot hold qty
	// more tickets, domain.ErrTierNotFound when the tier does not exist.
	Reserve(ctx context.Context, tierID string, qty int) error

	// ConfirmReserved atomically moves qty tickets from reserved to confirmed.
	ConfirmReserved(ctx context.Context, tierID string, qty int) error

	// Release atomically returns qty tickets from the given bucket to
	// available. Confirmed releases also bump the cancelled audit counter.
	Release(ctx context.Context, tierID string, qty int, from CounterBucket) error

	// Availability returns capacity and remaining availability for a tier.
	Availability(ctx context.Context, tierID string) (*domain.TierAvailability, error)
}

// TierRepository provides CRUD access to ticket tiers
type TierRepository interface {
	TierLedger

	Create(ctx context.Context, tier *domain.TicketTier) error
	GetByID(ctx context.Context, id string) (*domain.TicketTier, error)
	GetByEventID(ctx context.Context, eventID string) ([]*domain.TicketTier, error)
	// UpdateInactive updates capacity/price/name only while the tier has no
	// reserved or confirmed inventory; the guard is part of the update
	// predicate. Returns domain.ErrTierInUse when inventory is held.
	UpdateInactive(ctx context.Context, tier *domain.TicketTier) error
	Delete(ctx context.Context, id string) error
}

// EventRepository provides access to events
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	GetByOrganizerID(ctx context.Context, organizerID string, limit, offset int) ([]*domain.Event, error)
	Update(ctx context.Context, event *domain.Event) error
	// UpdateStatus transitions the event status with the current status as
	// part of the update predicate.
	UpdateStatus(ctx context.Context, id string, from, to domain.EventStatus) error
	// Delete removes an event, guarded on draft status.
	Delete(ctx context.Context, id string) error
}

// RegistrationRepository provides access to registrations. Status
// transitions are conditional on the current status so concurrent writers
// cannot double-apply them.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *domain.Registration) error
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Registration, error)
	// GetByIdempotencyKey looks up the user's registration carrying the
	// key; keys are scoped per user. Returns (nil, nil) when none does.
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Registration, error)
	GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Registration, error)

	// Confirm transitions pending -> confirmed, recording the confirmation
	// code. Exactly one caller wins; the rest observe
	// domain.ErrAlreadyConfirmed or domain.ErrInvalidStateTransition.
	Confirm(ctx context.Context, id, confirmationCode string) error

	// Transition moves a registration from one status to another with a
	// reason, conditional on the current status. Failure is reported via
	// domain errors after a re-read.
	Transition(ctx context.Context, id string, from, to domain.RegistrationStatus, reason string) error

	// SetPaymentRef attaches the gateway reference to a registration.
	SetPaymentRef(ctx context.Context, id, paymentRef string) error

	// SetCheckedIn flips the check-in flag, conditional on the flag being
	// unset and the registration being confirmed. Returns
	// domain.ErrAlreadyCheckedIn or domain.ErrRegistrationNotConfirmed when
	// the guard rejects the update.
	SetCheckedIn(ctx context.Context, id string, at time.Time) error

	// GetExpiredPending returns pending registrations whose reservation
	// hold lapsed before the cutoff.
	GetExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Registration, error)
}
