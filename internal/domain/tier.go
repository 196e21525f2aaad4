package domain

import (
	"time"
)

// TicketTier is a quantity pool of tickets for an event. The counter
// columns are owned exclusively by the capacity ledger: every mutation is a
// single conditional update, never a read-then-write.
type TicketTier struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	// UnitPrice is in minor units of Currency (cents for USD).
	UnitPrice int64  `json:"unit_price"`
	Currency  string `json:"currency"`

	// Counters. Reserved covers pending registrations, Confirmed covers paid
	// ones. Cancelled is an audit counter and never feeds availability.
	Reserved  int `json:"reserved"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available returns the number of tickets still open for reservation.
func (t *TicketTier) Available() int {
	return t.Capacity - t.Reserved - t.Confirmed
}

// HasActivity reports whether any inventory is held. Tiers with activity
// cannot have capacity or price edited.
func (t *TicketTier) HasActivity() bool {
	return t.Reserved > 0 || t.Confirmed > 0
}

// Validate validates the tier fields
func (t *TicketTier) Validate() error {
	if t.Name == "" {
		return ErrInvalidTierName
	}
	if t.EventID == "" {
		return ErrInvalidEventID
	}
	if t.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if t.UnitPrice < 0 {
		return ErrInvalidUnitPrice
	}
	if t.Currency == "" {
		return ErrInvalidCurrency
	}
	return nil
}

// TierAvailability is the read model returned to callers asking how many
// tickets remain. It is always computed from the ledger counters, never
// from a cache.
type TierAvailability struct {
	TierID    string `json:"tier_id"`
	EventID   string `json:"event_id"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}
