package handler

import (
	"context"
	"net/http"

	"github.com/attendly/ticketing/internal/dto"
	"github.com/attendly/ticketing/internal/service"
	"github.com/attendly/ticketing/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EventHandler handles event and tier HTTP requests
type EventHandler struct {
	eventService service.EventService
	regService   service.RegistrationService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService service.EventService, regService service.RegistrationService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		regService:   regService,
	}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	organizerID := c.GetString("user_id")
	if organizerID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("organizer_id", organizerID),
		attribute.String("event_name", req.Name),
	)

	result, err := h.eventService.CreateEvent(ctx, organizerID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("event_id", result.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// GetEvent handles GET /events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	if eventID == "" {
		span.SetStatus(codes.Error, "event id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "event id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.eventService.GetEvent(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// GetOrganizerEvents handles GET /events
func (h *EventHandler) GetOrganizerEvents(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	organizerID := c.GetString("user_id")
	if organizerID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	page, pageSize := parsePagination(c)

	span.SetAttributes(
		attribute.String("organizer_id", organizerID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	result, err := h.eventService.GetOrganizerEvents(ctx, organizerID, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// UpdateEvent handles PUT /events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	organizerID := c.GetString("user_id")
	if organizerID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	eventID := c.Param("id")
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("organizer_id", organizerID),
	)

	result, err := h.eventService.UpdateEvent(ctx, eventID, organizerID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// PublishEvent handles POST /events/:id/publish
func (h *EventHandler) PublishEvent(c *gin.Context) {
	h.transitionEvent(c, "handler.event.publish", h.eventService.PublishEvent, "published")
}

// CancelEvent handles POST /events/:id/cancel
func (h *EventHandler) CancelEvent(c *gin.Context) {
	h.transitionEvent(c, "handler.event.cancel", h.eventService.CancelEvent, "cancelled")
}

// CompleteEvent handles POST /events/:id/complete
func (h *EventHandler) CompleteEvent(c *gin.Context) {
	h.transitionEvent(c, "handler.event.complete", h.eventService.CompleteEvent, "completed")
}

// DeleteEvent handles DELETE /events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	h.transitionEvent(c, "handler.event.delete", h.eventService.DeleteEvent, "deleted")
}

func (h *EventHandler) transitionEvent(c *gin.Context, spanName string, op func(ctx context.Context, eventID, organizerID string) error, status string) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), spanName)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	organizerID := c.GetString("user_id")
	if organizerID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	eventID := c.Param("id")
	if eventID == "" {
		span.SetStatus(codes.Error, "event id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "event id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("organizer_id", organizerID),
	)

	if err := op(ctx, eventID, organizerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Success: true,
		Data:    gin.H{"event_id": eventID, "status": status},
	})
}

// CreateTier handles POST /events/:id/tiers
func (h *EventHandler) CreateTier(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tier.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	organizerID := c.GetString("user_id")
	if organizerID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	eventID := c.Param("id")
	var req dto.CreateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("tier_name", req.Name),
		attribute.Int("capacity", req.Capacity),
	)

	result, err := h.eventService.CreateTier(ctx, eventID, organizerID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("tier_id", result.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// GetEventTiers handles GET /events/:id/tiers
func (h *EventHandler) GetEventTiers(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tier.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	if eventID == "" {
		span.SetStatus(codes.Error, "event id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "event id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.eventService.GetEventTiers(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// UpdateTier handles PUT /tiers/:id
func (h *EventHandler) UpdateTier(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tier.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	organizerID := c.GetString("user_id")
	if organizerID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	tierID := c.Param("id")
	var req dto.UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(attribute.String("tier_id", tierID))

	result, err := h.eventService.UpdateTier(ctx, tierID, organizerID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// DeleteTier handles DELETE /tiers/:id
func (h *EventHandler) DeleteTier(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tier.delete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	organizerID := c.GetString("user_id")
	if organizerID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	tierID := c.Param("id")
	if tierID == "" {
		span.SetStatus(codes.Error, "tier id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "tier id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(attribute.String("tier_id", tierID))

	if err := h.eventService.DeleteTier(ctx, tierID, organizerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// GetTierAvailability handles GET /tiers/:id/availability
// Public endpoint polled by clients during on-sale.
func (h *EventHandler) GetTierAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tier.availability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	tierID := c.Param("id")
	if tierID == "" {
		span.SetStatus(codes.Error, "tier id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "tier id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(attribute.String("tier_id", tierID))

	result, err := h.regService.GetTierAvailability(ctx, tierID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("available", result.Available))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}
