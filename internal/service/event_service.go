package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/dto"
	"github.com/attendly/ticketing/internal/repository"
	"github.com/attendly/ticketing/pkg/telemetry"
)

// EventService defines the interface for event and tier management
type EventService interface {
	// CreateEvent creates a draft event owned by the organizer
	CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error)

	// GetEvent retrieves an event
	GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error)

	// GetOrganizerEvents retrieves events owned by an organizer
	GetOrganizerEvents(ctx context.Context, organizerID string, page, pageSize int) (*dto.PaginatedResponse, error)

	// UpdateEvent updates event attributes
	UpdateEvent(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)

	// PublishEvent transitions a draft event to published
	PublishEvent(ctx context.Context, eventID, organizerID string) error

	// CancelEvent transitions a published event to cancelled
	CancelEvent(ctx context.Context, eventID, organizerID string) error

	// CompleteEvent transitions a published event to completed
	CompleteEvent(ctx context.Context, eventID, organizerID string) error

	// DeleteEvent removes a draft event
	DeleteEvent(ctx context.Context, eventID, organizerID string) error

	// CreateTier adds a ticket tier to an event
	CreateTier(ctx context.Context, eventID, organizerID string, req *dto.CreateTierRequest) (*dto.TierResponse, error)

	// GetEventTiers lists the tiers of an event
	GetEventTiers(ctx context.Context, eventID string) ([]*dto.TierResponse, error)

	// UpdateTier updates a tier while it holds no inventory
	UpdateTier(ctx context.Context, tierID, organizerID string, req *dto.UpdateTierRequest) (*dto.TierResponse, error)

	// DeleteTier removes a tier while it holds no inventory
	DeleteTier(ctx context.Context, tierID, organizerID string) error
}

type eventService struct {
	eventRepo repository.EventRepository
	tierRepo  repository.TierRepository
	pricing   *PricingCalculator
}

// NewEventService creates a new event service
func NewEventService(eventRepo repository.EventRepository, tierRepo repository.TierRepository) EventService {
	return &eventService{
		eventRepo: eventRepo,
		tierRepo:  tierRepo,
		pricing:   NewPricingCalculator(),
	}
}

// CreateEvent creates a draft event
func (s *eventService) CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	if organizerID == "" {
		span.SetStatus(codes.Error, "invalid organizer")
		return nil, domain.ErrInvalidUserID
	}
	if req == nil || req.Name == "" {
		span.SetStatus(codes.Error, "invalid name")
		return nil, domain.ErrInvalidEventName
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	now := time.Now()
	event := &domain.Event{
		ID:          uuid.New().String(),
		OrganizerID: organizerID,
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.EventStatusDraft,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Timezone:    timezone,
		RegOpensAt:  req.RegOpensAt,
		RegClosesAt: req.RegClosesAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := event.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("event_id", event.ID))
	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// GetEvent retrieves an event
func (s *eventService) GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get")
	defer span.End()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return dto.EventFromDomain(event), nil
}

// GetOrganizerEvents retrieves a page of the organizer's events
func (s *eventService) GetOrganizerEvents(ctx context.Context, organizerID string, page, pageSize int) (*dto.PaginatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get_organizer_events")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	events, err := s.eventRepo.GetByOrganizerID(ctx, organizerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.EventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.EventFromDomain(event))
	}

	return &dto.PaginatedResponse{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Count:    len(items),
	}, nil
}

// UpdateEvent updates event attributes
func (s *eventService) UpdateEvent(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update")
	defer span.End()

	event, err := s.getOwnedEvent(ctx, eventID, organizerID)
	if err != nil {
		return nil, err
	}

	event.Name = req.Name
	event.Description = req.Description
	event.StartTime = req.StartTime
	event.EndTime = req.EndTime
	if req.Timezone != "" {
		event.Timezone = req.Timezone
	}
	event.RegOpensAt = req.RegOpensAt
	event.RegClosesAt = req.RegClosesAt

	if err := event.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}
	return dto.EventFromDomain(event), nil
}

// PublishEvent opens a draft event for registration scheduling
func (s *eventService) PublishEvent(ctx context.Context, eventID, organizerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.publish")
	defer span.End()

	if _, err := s.getOwnedEvent(ctx, eventID, organizerID); err != nil {
		return err
	}
	return s.eventRepo.UpdateStatus(ctx, eventID, domain.EventStatusDraft, domain.EventStatusPublished)
}

// CancelEvent cancels a published event
func (s *eventService) CancelEvent(ctx context.Context, eventID, organizerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.cancel")
	defer span.End()

	if _, err := s.getOwnedEvent(ctx, eventID, organizerID); err != nil {
		return err
	}
	return s.eventRepo.UpdateStatus(ctx, eventID, domain.EventStatusPublished, domain.EventStatusCancelled)
}

// CompleteEvent marks a published event as completed
func (s *eventService) CompleteEvent(ctx context.Context, eventID, organizerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.complete")
	defer span.End()

	if _, err := s.getOwnedEvent(ctx, eventID, organizerID); err != nil {
		return err
	}
	return s.eventRepo.UpdateStatus(ctx, eventID, domain.EventStatusPublished, domain.EventStatusCompleted)
}

// DeleteEvent removes a draft event
func (s *eventService) DeleteEvent(ctx context.Context, eventID, organizerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete")
	defer span.End()

	event, err := s.getOwnedEvent(ctx, eventID, organizerID)
	if err != nil {
		return err
	}
	if !event.IsDeletable() {
		span.SetStatus(codes.Error, "not draft")
		return domain.ErrEventNotDraft
	}
	return s.eventRepo.Delete(ctx, eventID)
}

// CreateTier adds a tier to an event
func (s *eventService) CreateTier(ctx context.Context, eventID, organizerID string, req *dto.CreateTierRequest) (*dto.TierResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create_tier")
	defer span.End()

	if _, err := s.getOwnedEvent(ctx, eventID, organizerID); err != nil {
		return nil, err
	}
	if req == nil || req.Name == "" {
		span.SetStatus(codes.Error, "invalid name")
		return nil, domain.ErrInvalidTierName
	}
	if err := s.pricing.ValidateCurrency(req.Currency); err != nil {
		span.SetStatus(codes.Error, "invalid currency")
		return nil, err
	}

	now := time.Now()
	tier := &domain.TicketTier{
		ID:          uuid.New().String(),
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		UnitPrice:   req.UnitPrice,
		Currency:    req.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := tier.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.tierRepo.Create(ctx, tier); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("tier_id", tier.ID))
	span.SetStatus(codes.Ok, "")
	return dto.TierFromDomain(tier), nil
}

// GetEventTiers lists the tiers of an event
func (s *eventService) GetEventTiers(ctx context.Context, eventID string) ([]*dto.TierResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get_tiers")
	defer span.End()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	tiers, err := s.tierRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.TierResponse, 0, len(tiers))
	for _, tier := range tiers {
		resp = append(resp, dto.TierFromDomain(tier))
	}
	return resp, nil
}

// UpdateTier updates a tier while no inventory is held
func (s *eventService) UpdateTier(ctx context.Context, tierID, organizerID string, req *dto.UpdateTierRequest) (*dto.TierResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update_tier")
	defer span.End()

	tier, err := s.getOwnedTier(ctx, tierID, organizerID)
	if err != nil {
		return nil, err
	}
	if err := s.pricing.ValidateCurrency(req.Currency); err != nil {
		span.SetStatus(codes.Error, "invalid currency")
		return nil, err
	}

	tier.Name = req.Name
	tier.Description = req.Description
	tier.Capacity = req.Capacity
	tier.UnitPrice = req.UnitPrice
	tier.Currency = req.Currency

	if err := tier.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.tierRepo.UpdateInactive(ctx, tier); err != nil {
		return nil, err
	}
	return dto.TierFromDomain(tier), nil
}

// DeleteTier removes a tier while no inventory is held
func (s *eventService) DeleteTier(ctx context.Context, tierID, organizerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete_tier")
	defer span.End()

	if _, err := s.getOwnedTier(ctx, tierID, organizerID); err != nil {
		return err
	}
	return s.tierRepo.Delete(ctx, tierID)
}

// getOwnedEvent loads an event and hides it from non-owners
func (s *eventService) getOwnedEvent(ctx context.Context, eventID, organizerID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

// getOwnedTier loads a tier and checks ownership through its event
func (s *eventService) getOwnedTier(ctx context.Context, tierID, organizerID string) (*domain.TicketTier, error) {
	tier, err := s.tierRepo.GetByID(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getOwnedEvent(ctx, tier.EventID, organizerID); err != nil {
		return nil, domain.ErrTierNotFound
	}
	return tier, nil
}
