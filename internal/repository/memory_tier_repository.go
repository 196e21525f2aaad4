package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/attendly/ticketing/internal/domain"
)

// MemoryTierRepository is an in-memory TierRepository. It holds the same
// guard semantics as the Postgres implementation under a single mutex, so
// service tests exercise the real conditional-update behavior.
type MemoryTierRepository struct {
	mu    sync.Mutex
	tiers map[string]*domain.TicketTier
}

// NewMemoryTierRepository creates a new MemoryTierRepository
func NewMemoryTierRepository() *MemoryTierRepository {
	return &MemoryTierRepository{tiers: make(map[string]*domain.TicketTier)}
}

func (r *MemoryTierRepository) Create(ctx context.Context, tier *domain.TicketTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *tier
	r.tiers[tier.ID] = &cp
	return nil
}

func (r *MemoryTierRepository) GetByID(ctx context.Context, id string) (*domain.TicketTier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tier, ok := r.tiers[id]
	if !ok {
		return nil, domain.ErrTierNotFound
	}
	cp := *tier
	return &cp, nil
}

func (r *MemoryTierRepository) GetByEventID(ctx context.Context, eventID string) ([]*domain.TicketTier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tiers []*domain.TicketTier
	for _, tier := range r.tiers {
		if tier.EventID == eventID {
			cp := *tier
			tiers = append(tiers, &cp)
		}
	}
	return tiers, nil
}

func (r *MemoryTierRepository) UpdateInactive(ctx context.Context, tier *domain.TicketTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tiers[tier.ID]
	if !ok {
		return domain.ErrTierNotFound
	}
	if existing.Reserved > 0 || existing.Confirmed > 0 {
		return domain.ErrTierInUse
	}

	existing.Name = tier.Name
	existing.Description = tier.Description
	existing.Capacity = tier.Capacity
	existing.UnitPrice = tier.UnitPrice
	existing.Currency = tier.Currency
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryTierRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tier, ok := r.tiers[id]
	if !ok {
		return domain.ErrTierNotFound
	}
	if tier.Reserved > 0 || tier.Confirmed > 0 {
		return domain.ErrTierInUse
	}
	delete(r.tiers, id)
	return nil
}

func (r *MemoryTierRepository) Reserve(ctx context.Context, tierID string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	tier, ok := r.tiers[tierID]
	if !ok {
		return domain.ErrTierNotFound
	}
	if tier.Capacity-tier.Reserved-tier.Confirmed < qty {
		return domain.ErrInsufficientCapacity
	}
	tier.Reserved += qty
	tier.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryTierRepository) ConfirmReserved(ctx context.Context, tierID string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	tier, ok := r.tiers[tierID]
	if !ok {
		return domain.ErrTierNotFound
	}
	if tier.Reserved < qty {
		return domain.ErrInsufficientCapacity
	}
	tier.Reserved -= qty
	tier.Confirmed += qty
	tier.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryTierRepository) Release(ctx context.Context, tierID string, qty int, from CounterBucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	tier, ok := r.tiers[tierID]
	if !ok {
		return domain.ErrTierNotFound
	}

	switch from {
	case BucketReserved:
		if tier.Reserved < qty {
			return domain.ErrInsufficientCapacity
		}
		tier.Reserved -= qty
	case BucketConfirmed:
		if tier.Confirmed < qty {
			return domain.ErrInsufficientCapacity
		}
		tier.Confirmed -= qty
		tier.Cancelled += qty
	default:
		return fmt.Errorf("unknown counter bucket: %s", from)
	}

	tier.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryTierRepository) Availability(ctx context.Context, tierID string) (*domain.TierAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tier, ok := r.tiers[tierID]
	if !ok {
		return nil, domain.ErrTierNotFound
	}
	return &domain.TierAvailability{
		TierID:    tier.ID,
		EventID:   tier.EventID,
		Capacity:  tier.Capacity,
		Available: tier.Capacity - tier.Reserved - tier.Confirmed,
	}, nil
}

var _ TierRepository = (*MemoryTierRepository)(nil)
