package domain

import (
	"time"
)

// EventStatus represents the lifecycle status of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// IsValid checks if the event status is valid
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s EventStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can move to the target status
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	switch s {
	case EventStatusDraft:
		return target == EventStatusPublished
	case EventStatusPublished:
		return target == EventStatusCancelled || target == EventStatusCompleted
	}
	return false
}

// Event represents an event that attendees register for
type Event struct {
	ID            string      `json:"id"`
	OrganizerID   string      `json:"organizer_id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Status        EventStatus `json:"status"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       time.Time   `json:"end_time"`
	Timezone      string      `json:"timezone"`
	RegOpensAt    time.Time   `json:"registration_opens_at"`
	RegClosesAt   time.Time   `json:"registration_closes_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Validate validates the event fields
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrInvalidEventName
	}
	if !e.Status.IsValid() {
		return ErrInvalidEventStatus
	}
	if !e.RegClosesAt.After(e.RegOpensAt) {
		return ErrInvalidWindow
	}
	return nil
}

// IsOpenForRegistration reports whether registrations are accepted at the
// given instant. Only published events inside their registration window
// accept registrations.
func (e *Event) IsOpenForRegistration(now time.Time) bool {
	if e.Status != EventStatusPublished {
		return false
	}
	return !now.Before(e.RegOpensAt) && now.Before(e.RegClosesAt)
}

// IsDeletable reports whether the event can be removed. Only drafts can.
func (e *Event) IsDeletable() bool {
	return e.Status == EventStatusDraft
}
