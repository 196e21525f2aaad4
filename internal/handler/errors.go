package handler

import (
	"errors"
	"net/http"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/dto"
	"github.com/gin-gonic/gin"
)

// handleError converts domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	case errors.Is(err, domain.ErrInsufficientCapacity):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "SOLD_OUT",
			Message: "Not enough tickets remain in this tier",
		})
	case errors.Is(err, domain.ErrMaxTicketsExceeded):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "MAX_TICKETS_EXCEEDED",
		})
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_CONFIRMED",
		})
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_CHECKED_IN",
		})
	case errors.Is(err, domain.ErrRegistrationNotConfirmed):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_CONFIRMED",
		})
	case errors.Is(err, domain.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_TRANSITION",
		})
	case errors.Is(err, domain.ErrTierInUse):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "TIER_IN_USE",
			Message: "Tier holds reserved or confirmed tickets",
		})
	case errors.Is(err, domain.ErrTierEventMismatch):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "TIER_EVENT_MISMATCH",
		})
	case errors.Is(err, domain.ErrEventNotDraft),
		errors.Is(err, domain.ErrInvalidEventStatus):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_EVENT_STATUS",
		})
	case errors.Is(err, domain.ErrEventNotOpen):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "REGISTRATION_CLOSED",
			Message: "The event is not open for registration",
		})
	case errors.Is(err, domain.ErrPaymentFailed):
		c.JSON(http.StatusPaymentRequired, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PAYMENT_FAILED",
		})
	case domain.IsExpiredError(err):
		c.JSON(http.StatusGone, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EXPIRED",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
