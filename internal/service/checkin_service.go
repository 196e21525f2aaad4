package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/dto"
	"github.com/attendly/ticketing/internal/metrics"
	"github.com/attendly/ticketing/internal/repository"
	"github.com/attendly/ticketing/pkg/telemetry"
)

// CheckInService defines the interface for attendee check-in
type CheckInService interface {
	// CheckIn marks a confirmed registration as checked in. The flag flip
	// is conditional, so the same ticket cannot admit twice.
	CheckIn(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error)
}

type checkInService struct {
	regRepo        repository.RegistrationRepository
	eventPublisher EventPublisher
}

// NewCheckInService creates a new check-in service
func NewCheckInService(regRepo repository.RegistrationRepository, eventPublisher EventPublisher) CheckInService {
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	return &checkInService{
		regRepo:        regRepo,
		eventPublisher: eventPublisher,
	}
}

// CheckIn validates the confirmation code and flips the check-in flag
func (s *checkInService) CheckIn(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkin.check_in")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", registrationID))

	if registrationID == "" {
		span.SetStatus(codes.Error, "invalid registration_id")
		return nil, domain.ErrInvalidRegistrationID
	}
	if req == nil || req.ConfirmationCode == "" {
		span.SetStatus(codes.Error, "missing confirmation code")
		return nil, domain.ErrRegistrationNotConfirmed
	}

	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.ConfirmationCode == "" || reg.ConfirmationCode != req.ConfirmationCode {
		// A wrong code gets the same answer as a missing registration so
		// codes cannot be probed.
		span.SetStatus(codes.Error, "code mismatch")
		return nil, domain.ErrRegistrationNotFound
	}

	// A duplicate scan at the door is harmless, answer with the original
	// admission time instead of an error.
	if reg.CheckedIn {
		span.SetAttributes(attribute.Bool("already_checked_in", true))
		span.SetStatus(codes.Ok, "")
		resp := &dto.CheckInResponse{
			RegistrationID:   reg.ID,
			Quantity:         reg.Quantity,
			AlreadyCheckedIn: true,
		}
		if reg.CheckedInAt != nil {
			resp.CheckedInAt = *reg.CheckedInAt
		}
		return resp, nil
	}

	now := time.Now()
	if err := s.regRepo.SetCheckedIn(ctx, registrationID, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyCheckedIn) {
			// Lost a race with a concurrent scan of the same ticket;
			// answer with the winner's admission time.
			span.SetAttributes(attribute.Bool("already_checked_in", true))
			span.SetStatus(codes.Ok, "")
			resp := &dto.CheckInResponse{
				RegistrationID:   reg.ID,
				Quantity:         reg.Quantity,
				AlreadyCheckedIn: true,
			}
			if current, getErr := s.regRepo.GetByID(ctx, registrationID); getErr == nil && current.CheckedInAt != nil {
				resp.CheckedInAt = *current.CheckedInAt
			}
			return resp, nil
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	reg.CheckedIn = true
	reg.CheckedInAt = &now
	metrics.RecordCheckIn(ctx, reg.EventID)
	_ = s.eventPublisher.PublishRegistrationCheckedIn(ctx, reg)

	span.SetStatus(codes.Ok, "")
	return &dto.CheckInResponse{
		RegistrationID: reg.ID,
		CheckedInAt:    now,
		Quantity:       reg.Quantity,
	}, nil
}
