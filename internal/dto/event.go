package dto

import (
	"time"

	"github.com/attendly/ticketing/internal/domain"
)

// CreateEventRequest represents request to create an event
type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Timezone    string    `json:"timezone,omitempty"`
	RegOpensAt  time.Time `json:"reg_opens_at" binding:"required"`
	RegClosesAt time.Time `json:"reg_closes_at" binding:"required"`
}

// UpdateEventRequest represents request to update event attributes
type UpdateEventRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Timezone    string    `json:"timezone,omitempty"`
	RegOpensAt  time.Time `json:"reg_opens_at" binding:"required"`
	RegClosesAt time.Time `json:"reg_closes_at" binding:"required"`
}

// EventResponse represents an event in API responses
type EventResponse struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Timezone    string    `json:"timezone"`
	RegOpensAt  time.Time `json:"reg_opens_at"`
	RegClosesAt time.Time `json:"reg_closes_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateTierRequest represents request to add a tier to an event
type CreateTierRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	Capacity    int    `json:"capacity" binding:"required,min=1"`
	UnitPrice   int64  `json:"unit_price" binding:"min=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
}

// UpdateTierRequest represents request to update an idle tier
type UpdateTierRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	Capacity    int    `json:"capacity" binding:"required,min=1"`
	UnitPrice   int64  `json:"unit_price" binding:"min=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
}

// TierResponse represents a tier in API responses
type TierResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Capacity    int       `json:"capacity"`
	UnitPrice   int64     `json:"unit_price"`
	Currency    string    `json:"currency"`
	Available   int       `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

// TierAvailabilityResponse represents current availability for a tier
type TierAvailabilityResponse struct {
	TierID    string `json:"tier_id"`
	EventID   string `json:"event_id"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

// EventFromDomain converts a domain Event to EventResponse
func EventFromDomain(e *domain.Event) *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		OrganizerID: e.OrganizerID,
		Name:        e.Name,
		Description: e.Description,
		Status:      string(e.Status),
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Timezone:    e.Timezone,
		RegOpensAt:  e.RegOpensAt,
		RegClosesAt: e.RegClosesAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// TierFromDomain converts a domain TicketTier to TierResponse
func TierFromDomain(t *domain.TicketTier) *TierResponse {
	return &TierResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		Name:        t.Name,
		Description: t.Description,
		Capacity:    t.Capacity,
		UnitPrice:   t.UnitPrice,
		Currency:    t.Currency,
		Available:   t.Available(),
		CreatedAt:   t.CreatedAt,
	}
}

// AvailabilityFromDomain converts a domain TierAvailability
func AvailabilityFromDomain(a *domain.TierAvailability) *TierAvailabilityResponse {
	return &TierAvailabilityResponse{
		TierID:    a.TierID,
		EventID:   a.EventID,
		Capacity:  a.Capacity,
		Available: a.Available,
	}
}
