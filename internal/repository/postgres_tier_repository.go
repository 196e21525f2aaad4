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

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/pkg/telemetry"
)

// PostgresTierRepository implements TierRepository using PostgreSQL with
// pgxpool. The counter mutations are single conditional UPDATEs: the
// capacity check and the increment commit or fail together, so concurrent
// reservations can never oversell a tier.
type PostgresTierRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTierRepository creates a new PostgresTierRepository
func NewPostgresTierRepository(pool *pgxpool.Pool) *PostgresTierRepository {
	return &PostgresTierRepository{pool: pool}
}

const tierColumns = `
	id, event_id, name, COALESCE(description, ''), capacity, unit_price, currency,
	reserved_count, confirmed_count, cancelled_count, created_at, updated_at
`

// Create creates a new ticket tier
func (r *PostgresTierRepository) Create(ctx context.Context, tier *domain.TicketTier) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("tier_id", tier.ID),
		attribute.String("event_id", tier.EventID),
		attribute.Int("capacity", tier.Capacity),
	)

	query := `
		INSERT INTO ticket_tiers (
			id, event_id, name, description, capacity, unit_price, currency,
			reserved_count, confirmed_count, cancelled_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			0, 0, 0, $8, $9
		)
	`

	_, err := r.pool.Exec(ctx, query,
		tier.ID,
		tier.EventID,
		tier.Name,
		nullString(tier.Description),
		tier.Capacity,
		tier.UnitPrice,
		tier.Currency,
		tier.CreatedAt,
		tier.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create tier: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a tier by its ID
func (r *PostgresTierRepository) GetByID(ctx context.Context, id string) (*domain.TicketTier, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("tier_id", id))

	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE id = $1`

	tier, err := scanTierRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTierNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get tier: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return tier, nil
}

// GetByEventID retrieves all tiers for an event
func (r *PostgresTierRepository) GetByEventID(ctx context.Context, eventID string) ([]*domain.TicketTier, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.get_by_event_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE event_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get tiers by event ID: %w", err)
	}
	defer rows.Close()

	var tiers []*domain.TicketTier
	for rows.Next() {
		tier, err := scanTierRow(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		tiers = append(tiers, tier)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating tiers: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(tiers)))
	span.SetStatus(codes.Ok, "")
	return tiers, nil
}

// UpdateInactive updates tier attributes while no inventory is held. The
// zero-counter guard is part of the predicate so a concurrent reservation
// cannot slip in between a check and the write.
func (r *PostgresTierRepository) UpdateInactive(ctx context.Context, tier *domain.TicketTier) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.update_inactive")
	defer span.End()

	span.SetAttributes(attribute.String("tier_id", tier.ID))

	query := `
		UPDATE ticket_tiers SET
			name = $2,
			description = $3,
			capacity = $4,
			unit_price = $5,
			currency = $6,
			updated_at = $7
		WHERE id = $1 AND reserved_count = 0 AND confirmed_count = 0
	`

	result, err := r.pool.Exec(ctx, query,
		tier.ID,
		tier.Name,
		nullString(tier.Description),
		tier.Capacity,
		tier.UnitPrice,
		tier.Currency,
		time.Now(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM ticket_tiers WHERE id = $1)", tier.ID).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check tier existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrTierNotFound
		}
		span.SetStatus(codes.Error, "tier in use")
		return domain.ErrTierInUse
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete removes a tier that holds no inventory
func (r *PostgresTierRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.delete")
	defer span.End()

	span.SetAttributes(attribute.String("tier_id", id))

	query := `DELETE FROM ticket_tiers WHERE id = $1 AND reserved_count = 0 AND confirmed_count = 0`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM ticket_tiers WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check tier existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrTierNotFound
		}
		span.SetStatus(codes.Error, "tier in use")
		return domain.ErrTierInUse
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Reserve atomically claims qty tickets. The availability check lives in
// the WHERE clause; zero rows affected means either the tier is missing or
// it cannot hold qty more tickets.
func (r *PostgresTierRepository) Reserve(ctx context.Context, tierID string, qty int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.reserve")
	defer span.End()

	span.SetAttributes(
		attribute.String("tier_id", tierID),
		attribute.Int("quantity", qty),
	)

	if qty <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return domain.ErrInvalidQuantity
	}

	query := `
		UPDATE ticket_tiers SET
			reserved_count = reserved_count + $2,
			updated_at = $3
		WHERE id = $1
			AND capacity - reserved_count - confirmed_count >= $2
	`

	result, err := r.pool.Exec(ctx, query, tierID, qty, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to reserve tier capacity: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM ticket_tiers WHERE id = $1)", tierID).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check tier existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrTierNotFound
		}
		span.SetStatus(codes.Error, "insufficient capacity")
		return domain.ErrInsufficientCapacity
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ConfirmReserved atomically moves qty tickets from reserved to confirmed
func (r *PostgresTierRepository) ConfirmReserved(ctx context.Context, tierID string, qty int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.confirm_reserved")
	defer span.End()

	span.SetAttributes(
		attribute.String("tier_id", tierID),
		attribute.Int("quantity", qty),
	)

	if qty <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return domain.ErrInvalidQuantity
	}

	query := `
		UPDATE ticket_tiers SET
			reserved_count = reserved_count - $2,
			confirmed_count = confirmed_count + $2,
			updated_at = $3
		WHERE id = $1 AND reserved_count >= $2
	`

	result, err := r.pool.Exec(ctx, query, tierID, qty, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to confirm reserved capacity: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM ticket_tiers WHERE id = $1)", tierID).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check tier existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrTierNotFound
		}
		span.SetStatus(codes.Error, "insufficient reserved")
		return domain.ErrInsufficientCapacity
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Release returns qty tickets from a bucket to availability. Confirmed
// releases also bump the cancelled audit counter.
func (r *PostgresTierRepository) Release(ctx context.Context, tierID string, qty int, from CounterBucket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.release")
	defer span.End()

	span.SetAttributes(
		attribute.String("tier_id", tierID),
		attribute.Int("quantity", qty),
		attribute.String("bucket", string(from)),
	)

	if qty <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return domain.ErrInvalidQuantity
	}

	var query string
	switch from {
	case BucketReserved:
		query = `
			UPDATE ticket_tiers SET
				reserved_count = reserved_count - $2,
				updated_at = $3
			WHERE id = $1 AND reserved_count >= $2
		`
	case BucketConfirmed:
		query = `
			UPDATE ticket_tiers SET
				confirmed_count = confirmed_count - $2,
				cancelled_count = cancelled_count + $2,
				updated_at = $3
			WHERE id = $1 AND confirmed_count >= $2
		`
	default:
		span.SetStatus(codes.Error, "invalid bucket")
		return fmt.Errorf("unknown counter bucket: %s", from)
	}

	result, err := r.pool.Exec(ctx, query, tierID, qty, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to release tier capacity: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM ticket_tiers WHERE id = $1)", tierID).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check tier existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrTierNotFound
		}
		span.SetStatus(codes.Error, "insufficient bucket count")
		return domain.ErrInsufficientCapacity
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Availability reads capacity and remaining availability from the ledger
func (r *PostgresTierRepository) Availability(ctx context.Context, tierID string) (*domain.TierAvailability, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tier.availability")
	defer span.End()

	span.SetAttributes(attribute.String("tier_id", tierID))

	query := `
		SELECT id, event_id, capacity, capacity - reserved_count - confirmed_count
		FROM ticket_tiers
		WHERE id = $1
	`

	avail := &domain.TierAvailability{}
	err := r.pool.QueryRow(ctx, query, tierID).Scan(
		&avail.TierID,
		&avail.EventID,
		&avail.Capacity,
		&avail.Available,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTierNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get tier availability: %w", err)
	}

	span.SetAttributes(attribute.Int("available", avail.Available))
	span.SetStatus(codes.Ok, "")
	return avail, nil
}

// scanTierRow scans a single row into a TicketTier
func scanTierRow(row pgx.Row) (*domain.TicketTier, error) {
	tier := &domain.TicketTier{}
	err := row.Scan(
		&tier.ID,
		&tier.EventID,
		&tier.Name,
		&tier.Description,
		&tier.Capacity,
		&tier.UnitPrice,
		&tier.Currency,
		&tier.Reserved,
		&tier.Confirmed,
		&tier.Cancelled,
		&tier.CreatedAt,
		&tier.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tier, nil
}

// Ensure PostgresTierRepository implements TierRepository
var _ TierRepository = (*PostgresTierRepository)(nil)
