package handler

import (
	"net/http"
	"strconv"

	"github.com/attendly/ticketing/internal/dto"
	"github.com/attendly/ticketing/internal/service"
	"github.com/attendly/ticketing/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RegistrationHandler handles registration HTTP requests
type RegistrationHandler struct {
	regService     service.RegistrationService
	checkInService service.CheckInService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(regService service.RegistrationService, checkInService service.CheckInService) *RegistrationHandler {
	return &RegistrationHandler{
		regService:     regService,
		checkInService: checkInService,
	}
}

// CreateRegistration handles POST /registrations
// Reserves tickets atomically against the tier ledger, charges the
// payment gateway, and returns the registration. Idempotent when the
// request carries an idempotency key.
func (h *RegistrationHandler) CreateRegistration(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	var req dto.CreateRegistrationRequest
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

	// Header takes precedence when both are present
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("event_id", req.EventID),
		attribute.String("tier_id", req.TierID),
		attribute.Int("quantity", req.Quantity),
	)

	result, err := h.regService.CreateRegistration(ctx, userID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("registration_id", result.RegistrationID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// ConfirmPayment handles POST /registrations/:id/confirm
func (h *RegistrationHandler) ConfirmPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.confirm")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	registrationID := c.Param("id")
	if registrationID == "" {
		span.SetStatus(codes.Error, "registration id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "registration id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	var req dto.ConfirmPaymentRequest
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
		attribute.String("registration_id", registrationID),
		attribute.String("user_id", userID),
		attribute.String("payment_ref", req.PaymentRef),
	)

	result, err := h.regService.ConfirmPayment(ctx, registrationID, userID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// CancelRegistration handles POST /registrations/:id/cancel
func (h *RegistrationHandler) CancelRegistration(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	registrationID := c.Param("id")
	if registrationID == "" {
		span.SetStatus(codes.Error, "registration id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "registration id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	var req dto.CancelRegistrationRequest
	// Reason is optional, so an empty body is fine
	_ = c.ShouldBindJSON(&req)

	span.SetAttributes(
		attribute.String("registration_id", registrationID),
		attribute.String("user_id", userID),
	)

	result, err := h.regService.CancelRegistration(ctx, registrationID, userID, req.Reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// GetRegistration handles GET /registrations/:id
func (h *RegistrationHandler) GetRegistration(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	registrationID := c.Param("id")
	if registrationID == "" {
		span.SetStatus(codes.Error, "registration id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "registration id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(
		attribute.String("registration_id", registrationID),
		attribute.String("user_id", userID),
	)

	result, err := h.regService.GetRegistration(ctx, registrationID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// GetUserRegistrations handles GET /registrations
func (h *RegistrationHandler) GetUserRegistrations(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	page, pageSize := parsePagination(c)

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	result, err := h.regService.GetUserRegistrations(ctx, userID, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// CheckIn handles POST /registrations/:id/checkin
// Staff scans the attendee's confirmation code at the venue entrance.
func (h *RegistrationHandler) CheckIn(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.checkin")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	registrationID := c.Param("id")
	if registrationID == "" {
		span.SetStatus(codes.Error, "registration id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "registration id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	var req dto.CheckInRequest
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

	span.SetAttributes(attribute.String("registration_id", registrationID))

	result, err := h.checkInService.CheckIn(ctx, registrationID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// parsePagination reads page/page_size query params with sane bounds
func parsePagination(c *gin.Context) (int, int) {
	page := 1
	pageSize := 20
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if n, err := strconv.Atoi(ps); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}
