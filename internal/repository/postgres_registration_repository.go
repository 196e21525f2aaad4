package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/pkg/telemetry"
)

// PostgresRegistrationRepository implements RegistrationRepository using
// PostgreSQL with pgxpool. Status transitions carry the expected current
// status in the update predicate, so under concurrent writers exactly one
// transition applies and the rest are diagnosed from a re-read.
type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistrationRepository creates a new PostgresRegistrationRepository
func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool}
}

const registrationColumns = `
	id, event_id, tier_id, user_id, quantity, status,
	amount, currency, payment_ref, confirmation_code, status_reason, idempotency_key,
	checked_in, checked_in_at, expires_at, created_at, updated_at, confirmed_at, cancelled_at
`

// Create creates a new registration
func (r *PostgresRegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("registration_id", reg.ID),
		attribute.String("tier_id", reg.TierID),
		attribute.Int("quantity", reg.Quantity),
	)

	query := `
		INSERT INTO registrations (
			id, event_id, tier_id, user_id, quantity, status,
			amount, currency, payment_ref, confirmation_code, status_reason, idempotency_key,
			checked_in, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			false, $13, $14, $15
		)
	`

	_, err := r.pool.Exec(ctx, query,
		reg.ID,
		reg.EventID,
		reg.TierID,
		reg.UserID,
		reg.Quantity,
		string(reg.Status),
		reg.Amount,
		reg.Currency,
		nullString(reg.PaymentRef),
		nullString(reg.ConfirmationCode),
		nullString(reg.StatusReason),
		nullString(reg.IdempotencyKey),
		reg.ExpiresAt,
		reg.CreatedAt,
		reg.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create registration: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a registration by its ID
func (r *PostgresRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", id))

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	reg, err := scanRegistrationRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return reg, nil
}

// GetByUserID retrieves registrations for a user, newest first
func (r *PostgresRegistrationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_by_user_id")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get registrations by user ID: %w", err)
	}
	defer rows.Close()

	regs, err := collectRegistrations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(regs)))
	span.SetStatus(codes.Ok, "")
	return regs, nil
}

// GetByIdempotencyKey retrieves the user's registration carrying the
// idempotency key. Returns (nil, nil) when none does.
func (r *PostgresRegistrationRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_by_idempotency_key")
	defer span.End()

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 AND idempotency_key = $2`

	reg, err := scanRegistrationRow(r.pool.QueryRow(ctx, query, userID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get registration by idempotency key: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return reg, nil
}

// GetByPaymentRef retrieves a registration by its payment gateway reference
func (r *PostgresRegistrationRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_by_payment_ref")
	defer span.End()

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE payment_ref = $1`

	reg, err := scanRegistrationRow(r.pool.QueryRow(ctx, query, paymentRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get registration by payment ref: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return reg, nil
}

// Confirm transitions a pending registration to confirmed, recording the
// confirmation code and the confirmation time. The pending guard is part
// of the predicate; exactly one concurrent caller wins.
func (r *PostgresRegistrationRepository) Confirm(ctx context.Context, id, confirmationCode string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.confirm")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", id))

	now := time.Now()
	query := `
		UPDATE registrations SET
			status = 'confirmed',
			confirmation_code = $2,
			confirmed_at = $3,
			updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.pool.Exec(ctx, query, id, confirmationCode, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to confirm registration: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.diagnoseTransition(ctx, span, id, domain.RegistrationStatusConfirmed)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Transition moves a registration from one status to another with a
// reason, conditional on the current status.
func (r *PostgresRegistrationRepository) Transition(ctx context.Context, id string, from, to domain.RegistrationStatus, reason string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.transition")
	defer span.End()

	span.SetAttributes(
		attribute.String("registration_id", id),
		attribute.String("from_status", string(from)),
		attribute.String("to_status", string(to)),
	)

	if !from.CanTransitionTo(to) {
		span.SetStatus(codes.Error, "invalid transition")
		return domain.ErrInvalidStateTransition
	}

	now := time.Now()
	var query string
	switch to {
	case domain.RegistrationStatusCancelled, domain.RegistrationStatusRefunded:
		query = `
			UPDATE registrations SET
				status = $3,
				status_reason = $4,
				cancelled_at = $5,
				updated_at = $5
			WHERE id = $1 AND status = $2
		`
	default:
		query = `
			UPDATE registrations SET
				status = $3,
				status_reason = $4,
				updated_at = $5
			WHERE id = $1 AND status = $2
		`
	}

	result, err := r.pool.Exec(ctx, query, id, string(from), string(to), nullString(reason), now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to transition registration: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.diagnoseTransition(ctx, span, id, to)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SetPaymentRef attaches the gateway reference to a registration
func (r *PostgresRegistrationRepository) SetPaymentRef(ctx context.Context, id, paymentRef string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.set_payment_ref")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", id))

	query := `UPDATE registrations SET payment_ref = $2, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, paymentRef, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to set payment ref: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrRegistrationNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SetCheckedIn flips the check-in flag. The guard requires a confirmed,
// not-yet-checked-in registration; a zero-row result is re-read to tell
// the caller which condition failed.
func (r *PostgresRegistrationRepository) SetCheckedIn(ctx context.Context, id string, at time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.set_checked_in")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", id))

	query := `
		UPDATE registrations SET
			checked_in = true,
			checked_in_at = $2,
			updated_at = $2
		WHERE id = $1 AND checked_in = false AND status = 'confirmed'
	`

	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to check in registration: %w", err)
	}

	if result.RowsAffected() == 0 {
		reg, err := r.GetByID(ctx, id)
		if err != nil {
			span.SetStatus(codes.Error, "not found")
			return err
		}
		if reg.CheckedIn {
			span.SetStatus(codes.Error, "already checked in")
			return domain.ErrAlreadyCheckedIn
		}
		span.SetStatus(codes.Error, "not confirmed")
		return domain.ErrRegistrationNotConfirmed
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetExpiredPending returns pending registrations whose hold lapsed before
// the cutoff, oldest first
func (r *PostgresRegistrationRepository) GetExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_expired_pending")
	defer span.End()

	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get expired registrations: %w", err)
	}
	defer rows.Close()

	regs, err := collectRegistrations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(regs)))
	span.SetStatus(codes.Ok, "")
	return regs, nil
}

// diagnoseTransition classifies a zero-row conditional update: the row is
// missing, already in the target status, or in a status the transition
// does not start from.
func (r *PostgresRegistrationRepository) diagnoseTransition(ctx context.Context, span trace.Span, id string, to domain.RegistrationStatus) error {
	reg, err := r.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return err
	}
	if reg.Status == to {
		if to == domain.RegistrationStatusConfirmed {
			span.SetStatus(codes.Error, "already confirmed")
			return domain.ErrAlreadyConfirmed
		}
		span.SetStatus(codes.Error, "already in target status")
		return domain.ErrInvalidStateTransition
	}
	span.SetStatus(codes.Error, "invalid transition")
	return domain.ErrInvalidStateTransition
}

// scanRegistrationRow scans a single row into a Registration
func scanRegistrationRow(row pgx.Row) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var (
		paymentRef       *string
		confirmationCode *string
		statusReason     *string
		idempotencyKey   *string
		status           string
	)

	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.TierID,
		&reg.UserID,
		&reg.Quantity,
		&status,
		&reg.Amount,
		&reg.Currency,
		&paymentRef,
		&confirmationCode,
		&statusReason,
		&idempotencyKey,
		&reg.CheckedIn,
		&reg.CheckedInAt,
		&reg.ExpiresAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
		&reg.ConfirmedAt,
		&reg.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	reg.Status = domain.RegistrationStatus(status)
	if paymentRef != nil {
		reg.PaymentRef = *paymentRef
	}
	if confirmationCode != nil {
		reg.ConfirmationCode = *confirmationCode
	}
	if statusReason != nil {
		reg.StatusReason = *statusReason
	}
	if idempotencyKey != nil {
		reg.IdempotencyKey = *idempotencyKey
	}

	return reg, nil
}

// collectRegistrations drains a row set into registrations
func collectRegistrations(rows pgx.Rows) ([]*domain.Registration, error) {
	var regs []*domain.Registration
	for rows.Next() {
		reg, err := scanRegistrationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}
	return regs, nil
}

// Ensure PostgresRegistrationRepository implements RegistrationRepository
var _ RegistrationRepository = (*PostgresRegistrationRepository)(nil)
