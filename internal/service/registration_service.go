package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/dto"
	"github.com/attendly/ticketing/internal/gateway"
	"github.com/attendly/ticketing/internal/metrics"
	"github.com/attendly/ticketing/internal/repository"
	"github.com/attendly/ticketing/pkg/retry"
	"github.com/attendly/ticketing/pkg/telemetry"
)

// RegistrationService defines the interface for registration business logic
type RegistrationService interface {
	// CreateRegistration reserves tickets and initiates payment, with
	// idempotency support
	CreateRegistration(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error)

	// ConfirmPayment confirms a pending registration after payment settles
	ConfirmPayment(ctx context.Context, registrationID, userID string, req *dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error)

	// CancelRegistration cancels a registration, releasing its inventory
	CancelRegistration(ctx context.Context, registrationID, userID, reason string) (*dto.CancelRegistrationResponse, error)

	// GetRegistration retrieves a registration owned by the user
	GetRegistration(ctx context.Context, registrationID, userID string) (*dto.RegistrationResponse, error)

	// GetUserRegistrations retrieves a user's registrations
	GetUserRegistrations(ctx context.Context, userID string, page, pageSize int) (*dto.PaginatedResponse, error)

	// GetTierAvailability reads live availability for a tier
	GetTierAvailability(ctx context.Context, tierID string) (*dto.TierAvailabilityResponse, error)

	// HandlePaymentSettled applies a gateway settlement to the
	// registration holding the payment ref
	HandlePaymentSettled(ctx context.Context, paymentRef string, succeeded bool, reason string) error

	// ExpireReservations cancels pending registrations whose hold lapsed
	// and returns their tickets, up to limit rows
	ExpireReservations(ctx context.Context, limit int) (int, error)
}

// registrationService implements RegistrationService
type registrationService struct {
	regRepo        repository.RegistrationRepository
	tierRepo       repository.TierRepository
	eventRepo      repository.EventRepository
	gateway        gateway.PaymentGateway
	eventPublisher EventPublisher
	pricing        *PricingCalculator
	reservationTTL time.Duration
	maxPerOrder    int
	ledgerRetry    *retry.Retrier
}

// RegistrationServiceConfig contains configuration for the registration service
type RegistrationServiceConfig struct {
	ReservationTTL time.Duration
	MaxPerOrder    int
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	regRepo repository.RegistrationRepository,
	tierRepo repository.TierRepository,
	eventRepo repository.EventRepository,
	paymentGateway gateway.PaymentGateway,
	eventPublisher EventPublisher,
	cfg *RegistrationServiceConfig,
) RegistrationService {
	ttl := 15 * time.Minute
	maxPerOrder := 10
	if cfg != nil {
		if cfg.ReservationTTL > 0 {
			ttl = cfg.ReservationTTL
		}
		if cfg.MaxPerOrder > 0 {
			maxPerOrder = cfg.MaxPerOrder
		}
	}
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	return &registrationService{
		regRepo:        regRepo,
		tierRepo:       tierRepo,
		eventRepo:      eventRepo,
		gateway:        paymentGateway,
		eventPublisher: eventPublisher,
		pricing:        NewPricingCalculator(),
		reservationTTL: ttl,
		maxPerOrder:    maxPerOrder,
		ledgerRetry: retry.New(&retry.Config{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		}),
	}
}

// CreateRegistration reserves tickets atomically, records the registration
// and initiates payment. The ledger reserve happens before the row insert;
// any later failure releases the hold.
func (s *registrationService) CreateRegistration(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.create")
	defer span.End()

	if req == nil || req.Quantity <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, domain.ErrInvalidQuantity
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}
	if req.EventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if req.TierID == "" {
		span.SetStatus(codes.Error, "invalid tier_id")
		return nil, domain.ErrInvalidTierID
	}
	if req.Quantity > s.maxPerOrder {
		span.SetStatus(codes.Error, "max tickets exceeded")
		return nil, domain.ErrMaxTicketsExceeded
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("event_id", req.EventID),
		attribute.String("tier_id", req.TierID),
		attribute.Int("quantity", req.Quantity),
	)

	// Replay on idempotency key
	if req.IdempotencyKey != "" {
		existing, err := s.regRepo.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &dto.CreateRegistrationResponse{
				RegistrationID:   existing.ID,
				Status:           string(existing.Status),
				Amount:           existing.Amount,
				Currency:         existing.Currency,
				ExpiresAt:        existing.ExpiresAt,
				ConfirmationCode: existing.ConfirmationCode,
				PaymentRef:       existing.PaymentRef,
			}, nil
		}
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOpenForRegistration(time.Now()) {
		span.SetStatus(codes.Error, "event not open")
		metrics.RecordFailure(ctx, req.EventID, "event_not_open")
		return nil, domain.ErrEventNotOpen
	}

	tier, err := s.tierRepo.GetByID(ctx, req.TierID)
	if err != nil {
		return nil, err
	}
	if tier.EventID != req.EventID {
		span.SetStatus(codes.Error, "tier event mismatch")
		return nil, domain.ErrTierEventMismatch
	}

	amount, err := s.pricing.Total(tier.UnitPrice, req.Quantity, tier.Currency)
	if err != nil {
		return nil, err
	}

	// Atomic capacity claim
	if err := s.tierRepo.Reserve(ctx, req.TierID, req.Quantity); err != nil {
		if err == domain.ErrInsufficientCapacity {
			metrics.RecordFailure(ctx, req.EventID, "sold_out")
		}
		return nil, err
	}

	now := time.Now()
	reg := &domain.Registration{
		ID:             uuid.New().String(),
		EventID:        req.EventID,
		TierID:         req.TierID,
		UserID:         userID,
		Quantity:       req.Quantity,
		Status:         domain.RegistrationStatusPending,
		Amount:         amount,
		Currency:       tier.Currency,
		IdempotencyKey: req.IdempotencyKey,
		ExpiresAt:      now.Add(s.reservationTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.regRepo.Create(ctx, reg); err != nil {
		// Give the tickets back; the insert never happened.
		s.releaseQuietly(ctx, req.TierID, req.Quantity, repository.BucketReserved)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordReservation(ctx, req.EventID, req.TierID, req.Quantity)
	_ = s.eventPublisher.PublishRegistrationCreated(ctx, reg)

	// Free tiers skip the gateway entirely
	if amount == 0 {
		if err := s.finalizeConfirmation(ctx, reg); err != nil {
			return nil, err
		}
		return &dto.CreateRegistrationResponse{
			RegistrationID:   reg.ID,
			Status:           string(reg.Status),
			Amount:           reg.Amount,
			Currency:         reg.Currency,
			ExpiresAt:        reg.ExpiresAt,
			ConfirmationCode: reg.ConfirmationCode,
		}, nil
	}

	charge, err := s.gateway.Charge(ctx, &gateway.ChargeRequest{
		RegistrationID: reg.ID,
		UserID:         userID,
		Amount:         amount,
		Currency:       tier.Currency,
		Description:    event.Name + " / " + tier.Name,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		// Gateway unreachable: keep the pending hold, the client can
		// retry confirmation before the reservation expires.
		span.RecordError(err)
		return &dto.CreateRegistrationResponse{
			RegistrationID: reg.ID,
			Status:         string(reg.Status),
			Amount:         reg.Amount,
			Currency:       reg.Currency,
			ExpiresAt:      reg.ExpiresAt,
		}, nil
	}

	if charge.PaymentRef != "" {
		if err := s.regRepo.SetPaymentRef(ctx, reg.ID, charge.PaymentRef); err != nil {
			return nil, err
		}
		reg.PaymentRef = charge.PaymentRef
	}

	switch charge.Status {
	case gateway.ChargeStatusSucceeded:
		if err := s.finalizeConfirmation(ctx, reg); err != nil {
			return nil, err
		}
	case gateway.ChargeStatusFailed:
		metrics.RecordFailure(ctx, reg.EventID, "payment_failed")
		if err := s.cancelPending(ctx, reg, "payment failed: "+charge.FailReason); err != nil {
			return nil, err
		}
		span.SetStatus(codes.Error, "payment failed")
		return nil, domain.ErrPaymentFailed
	default:
		// Pending charge: the webhook settles the outcome.
	}

	span.SetStatus(codes.Ok, "")
	return &dto.CreateRegistrationResponse{
		RegistrationID:   reg.ID,
		Status:           string(reg.Status),
		Amount:           reg.Amount,
		Currency:         reg.Currency,
		ExpiresAt:        reg.ExpiresAt,
		ConfirmationCode: reg.ConfirmationCode,
		PaymentRef:       reg.PaymentRef,
	}, nil
}

// ConfirmPayment confirms a pending registration
func (s *registrationService) ConfirmPayment(ctx context.Context, registrationID, userID string, req *dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.confirm_payment")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", registrationID))

	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != userID {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrRegistrationNotFound
	}
	if reg.Status == domain.RegistrationStatusConfirmed {
		span.SetStatus(codes.Error, "already confirmed")
		return nil, domain.ErrAlreadyConfirmed
	}
	if reg.IsExpired(time.Now()) {
		span.SetStatus(codes.Error, "expired")
		return nil, domain.ErrRegistrationExpired
	}

	if req != nil && req.PaymentRef != "" && reg.PaymentRef == "" {
		if err := s.regRepo.SetPaymentRef(ctx, registrationID, req.PaymentRef); err != nil {
			return nil, err
		}
		reg.PaymentRef = req.PaymentRef
	}

	if err := s.finalizeConfirmation(ctx, reg); err != nil {
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &dto.ConfirmPaymentResponse{
		RegistrationID:   reg.ID,
		Status:           string(reg.Status),
		ConfirmationCode: reg.ConfirmationCode,
		ConfirmedAt:      *reg.ConfirmedAt,
	}, nil
}

// CancelRegistration cancels a registration. Cancelling an already
// terminal registration is a no-op success.
func (s *registrationService) CancelRegistration(ctx context.Context, registrationID, userID, reason string) (*dto.CancelRegistrationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", registrationID))

	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != userID {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrRegistrationNotFound
	}

	if reg.Status.IsTerminal() {
		span.SetStatus(codes.Ok, "")
		return &dto.CancelRegistrationResponse{
			RegistrationID: reg.ID,
			Status:         string(reg.Status),
			Message:        "registration already " + string(reg.Status),
		}, nil
	}

	if reason == "" {
		reason = "cancelled by user"
	}

	switch reg.Status {
	case domain.RegistrationStatusPending:
		if err := s.cancelPending(ctx, reg, reason); err != nil {
			return nil, err
		}
	case domain.RegistrationStatusConfirmed:
		target := domain.RegistrationStatusCancelled
		if reg.PaymentRef != "" && reg.Amount > 0 {
			if err := s.gateway.Refund(ctx, reg.PaymentRef); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			target = domain.RegistrationStatusRefunded
		}
		if err := s.regRepo.Transition(ctx, reg.ID, domain.RegistrationStatusConfirmed, target, reason); err != nil {
			return nil, err
		}
		if err := s.releaseWithRetry(ctx, reg.TierID, reg.Quantity, repository.BucketConfirmed); err != nil {
			return nil, err
		}
		reg.Status = target
		reg.StatusReason = reason
		metrics.RecordCancellation(ctx, reg.EventID, false)
		_ = s.eventPublisher.PublishRegistrationCancelled(ctx, reg)
	default:
		span.SetStatus(codes.Error, "invalid transition")
		return nil, domain.ErrInvalidStateTransition
	}

	span.SetStatus(codes.Ok, "")
	return &dto.CancelRegistrationResponse{
		RegistrationID: reg.ID,
		Status:         string(reg.Status),
		Message:        "registration " + string(reg.Status),
	}, nil
}

// GetRegistration retrieves a registration owned by the user
func (s *registrationService) GetRegistration(ctx context.Context, registrationID, userID string) (*dto.RegistrationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.get")
	defer span.End()

	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != userID {
		return nil, domain.ErrRegistrationNotFound
	}
	return dto.RegistrationFromDomain(reg), nil
}

// GetUserRegistrations retrieves a page of the user's registrations
func (s *registrationService) GetUserRegistrations(ctx context.Context, userID string, page, pageSize int) (*dto.PaginatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.get_user_registrations")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	regs, err := s.regRepo.GetByUserID(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		items = append(items, dto.RegistrationFromDomain(reg))
	}

	return &dto.PaginatedResponse{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Count:    len(items),
	}, nil
}

// GetTierAvailability reads live availability from the ledger. This is
// never cached: a stale answer here turns into user-visible oversell
// confusion at checkout.
func (s *registrationService) GetTierAvailability(ctx context.Context, tierID string) (*dto.TierAvailabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.tier_availability")
	defer span.End()

	avail, err := s.tierRepo.Availability(ctx, tierID)
	if err != nil {
		return nil, err
	}
	return dto.AvailabilityFromDomain(avail), nil
}

// HandlePaymentSettled applies a webhook settlement
func (s *registrationService) HandlePaymentSettled(ctx context.Context, paymentRef string, succeeded bool, reason string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.payment_settled")
	defer span.End()

	reg, err := s.regRepo.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}

	if reg.Status != domain.RegistrationStatusPending {
		// Settlement already applied through another path.
		span.SetStatus(codes.Ok, "")
		return nil
	}

	if succeeded {
		return s.finalizeConfirmation(ctx, reg)
	}

	if reason == "" {
		reason = "payment failed"
	}
	metrics.RecordFailure(ctx, reg.EventID, "payment_failed")
	return s.cancelPending(ctx, reg, reason)
}

// ExpireReservations sweeps lapsed pending registrations
func (s *registrationService) ExpireReservations(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.expire_reservations")
	defer span.End()

	regs, err := s.regRepo.GetExpiredPending(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, reg := range regs {
		err := s.regRepo.Transition(ctx, reg.ID, domain.RegistrationStatusPending, domain.RegistrationStatusCancelled, "reservation expired")
		if err != nil {
			// Lost the race to a confirm or another sweeper; skip.
			continue
		}
		if err := s.releaseWithRetry(ctx, reg.TierID, reg.Quantity, repository.BucketReserved); err != nil {
			span.RecordError(err)
			continue
		}
		reg.Status = domain.RegistrationStatusCancelled
		reg.StatusReason = "reservation expired"
		metrics.RecordExpiration(ctx, reg.EventID, 1)
		_ = s.eventPublisher.PublishRegistrationExpired(ctx, reg)
		expired++
	}

	span.SetAttributes(attribute.Int("expired", expired))
	span.SetStatus(codes.Ok, "")
	return expired, nil
}

// finalizeConfirmation transitions the row to confirmed, then moves the
// ledger hold to confirmed. The row transition is the commit point; the
// ledger move is retried until it lands.
func (s *registrationService) finalizeConfirmation(ctx context.Context, reg *domain.Registration) error {
	code, err := generateConfirmationCode()
	if err != nil {
		return err
	}

	if err := s.regRepo.Confirm(ctx, reg.ID, code); err != nil {
		return err
	}

	if err := s.confirmLedgerWithRetry(ctx, reg.TierID, reg.Quantity); err != nil {
		return err
	}

	now := time.Now()
	reg.Status = domain.RegistrationStatusConfirmed
	reg.ConfirmationCode = code
	reg.ConfirmedAt = &now

	metrics.RecordConfirmation(ctx, reg.EventID, now.Sub(reg.CreatedAt).Seconds())
	_ = s.eventPublisher.PublishRegistrationConfirmed(ctx, reg)
	return nil
}

// cancelPending transitions a pending row to cancelled and returns its
// tickets to availability
func (s *registrationService) cancelPending(ctx context.Context, reg *domain.Registration, reason string) error {
	if err := s.regRepo.Transition(ctx, reg.ID, domain.RegistrationStatusPending, domain.RegistrationStatusCancelled, reason); err != nil {
		return err
	}
	if err := s.releaseWithRetry(ctx, reg.TierID, reg.Quantity, repository.BucketReserved); err != nil {
		return err
	}
	reg.Status = domain.RegistrationStatusCancelled
	reg.StatusReason = reason
	metrics.RecordCancellation(ctx, reg.EventID, true)
	_ = s.eventPublisher.PublishRegistrationCancelled(ctx, reg)
	return nil
}

func (s *registrationService) confirmLedgerWithRetry(ctx context.Context, tierID string, qty int) error {
	result := s.ledgerRetry.Do(ctx, func(ctx context.Context) error {
		err := s.tierRepo.ConfirmReserved(ctx, tierID, qty)
		if err == domain.ErrTierNotFound || err == domain.ErrInsufficientCapacity {
			return retry.Permanent(err)
		}
		return err
	})
	return result.Err
}

func (s *registrationService) releaseWithRetry(ctx context.Context, tierID string, qty int, from repository.CounterBucket) error {
	result := s.ledgerRetry.Do(ctx, func(ctx context.Context) error {
		err := s.tierRepo.Release(ctx, tierID, qty, from)
		if err == domain.ErrTierNotFound {
			return retry.Permanent(err)
		}
		if err == domain.ErrInsufficientCapacity {
			// A cancel can observe the row confirmed before
			// finalizeConfirmation has moved the hold into the confirmed
			// bucket. That shortfall clears once the ledger move lands,
			// so keep retrying; a reserved-bucket shortfall does not.
			if from == repository.BucketConfirmed {
				return err
			}
			return retry.Permanent(err)
		}
		return err
	})
	return result.Err
}

func (s *registrationService) releaseQuietly(ctx context.Context, tierID string, qty int, from repository.CounterBucket) {
	_ = s.releaseWithRetry(ctx, tierID, qty, from)
}

// generateConfirmationCode returns an 8 character uppercase hex code
func generateConfirmationCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
