package domain

import (
	"time"
)

// RegistrationEventType identifies a registration lifecycle event
type RegistrationEventType string

const (
	RegistrationEventCreated   RegistrationEventType = "registration.created"
	RegistrationEventConfirmed RegistrationEventType = "registration.confirmed"
	RegistrationEventCancelled RegistrationEventType = "registration.cancelled"
	RegistrationEventExpired   RegistrationEventType = "registration.expired"
	RegistrationEventCheckedIn RegistrationEventType = "registration.checked_in"
)

// RegistrationEvent is the envelope published to the event stream for each
// registration lifecycle change. Events are keyed by registration ID so
// consumers see each registration's changes in order.
type RegistrationEvent struct {
	EventID   string                `json:"event_id"`
	Type      RegistrationEventType `json:"type"`
	Timestamp time.Time             `json:"timestamp"`

	RegistrationID string             `json:"registration_id"`
	TicketEventID  string             `json:"ticket_event_id"`
	TierID         string             `json:"tier_id"`
	UserID         string             `json:"user_id"`
	Quantity       int                `json:"quantity"`
	Status         RegistrationStatus `json:"status"`
	Amount         int64              `json:"amount"`
	Currency       string             `json:"currency"`
	StatusReason   string             `json:"status_reason,omitempty"`
}

// NewRegistrationEvent builds an event envelope from a registration snapshot
func NewRegistrationEvent(eventType RegistrationEventType, reg *Registration, eventID string) *RegistrationEvent {
	return &RegistrationEvent{
		EventID:        eventID,
		Type:           eventType,
		Timestamp:      time.Now(),
		RegistrationID: reg.ID,
		TicketEventID:  reg.EventID,
		TierID:         reg.TierID,
		UserID:         reg.UserID,
		Quantity:       reg.Quantity,
		Status:         reg.Status,
		Amount:         reg.Amount,
		Currency:       reg.Currency,
		StatusReason:   reg.StatusReason,
	}
}

// Key returns the partition key for the event
func (e *RegistrationEvent) Key() string {
	return e.RegistrationID
}
