package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/attendly/ticketing/internal/domain"
)

// MemoryRegistrationRepository is an in-memory RegistrationRepository with
// the same transition guards as the Postgres implementation.
type MemoryRegistrationRepository struct {
	mu   sync.Mutex
	regs map[string]*domain.Registration
}

// NewMemoryRegistrationRepository creates a new MemoryRegistrationRepository
func NewMemoryRegistrationRepository() *MemoryRegistrationRepository {
	return &MemoryRegistrationRepository{regs: make(map[string]*domain.Registration)}
}

func (r *MemoryRegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *reg
	r.regs[reg.ID] = &cp
	return nil
}

func (r *MemoryRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[id]
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r *MemoryRegistrationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var regs []*domain.Registration
	for _, reg := range r.regs {
		if reg.UserID == userID {
			cp := *reg
			regs = append(regs, &cp)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].CreatedAt.After(regs[j].CreatedAt)
	})
	if offset >= len(regs) {
		return nil, nil
	}
	regs = regs[offset:]
	if limit > 0 && limit < len(regs) {
		regs = regs[:limit]
	}
	return regs, nil
}

func (r *MemoryRegistrationRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.regs {
		if reg.UserID == userID && reg.IdempotencyKey == key {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRegistrationRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.regs {
		if reg.PaymentRef == paymentRef {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, domain.ErrRegistrationNotFound
}

func (r *MemoryRegistrationRepository) Confirm(ctx context.Context, id, confirmationCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[id]
	if !ok {
		return domain.ErrRegistrationNotFound
	}
	if reg.Status != domain.RegistrationStatusPending {
		if reg.Status == domain.RegistrationStatusConfirmed {
			return domain.ErrAlreadyConfirmed
		}
		return domain.ErrInvalidStateTransition
	}

	now := time.Now()
	reg.Status = domain.RegistrationStatusConfirmed
	reg.ConfirmationCode = confirmationCode
	reg.ConfirmedAt = &now
	reg.UpdatedAt = now
	return nil
}

func (r *MemoryRegistrationRepository) Transition(ctx context.Context, id string, from, to domain.RegistrationStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !from.CanTransitionTo(to) {
		return domain.ErrInvalidStateTransition
	}
	reg, ok := r.regs[id]
	if !ok {
		return domain.ErrRegistrationNotFound
	}
	if reg.Status != from {
		if reg.Status == to && to == domain.RegistrationStatusConfirmed {
			return domain.ErrAlreadyConfirmed
		}
		return domain.ErrInvalidStateTransition
	}

	now := time.Now()
	reg.Status = to
	reg.StatusReason = reason
	if to == domain.RegistrationStatusCancelled || to == domain.RegistrationStatusRefunded {
		reg.CancelledAt = &now
	}
	reg.UpdatedAt = now
	return nil
}

func (r *MemoryRegistrationRepository) SetPaymentRef(ctx context.Context, id, paymentRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[id]
	if !ok {
		return domain.ErrRegistrationNotFound
	}
	reg.PaymentRef = paymentRef
	reg.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRegistrationRepository) SetCheckedIn(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[id]
	if !ok {
		return domain.ErrRegistrationNotFound
	}
	if reg.CheckedIn {
		return domain.ErrAlreadyCheckedIn
	}
	if reg.Status != domain.RegistrationStatusConfirmed {
		return domain.ErrRegistrationNotConfirmed
	}
	reg.CheckedIn = true
	reg.CheckedInAt = &at
	reg.UpdatedAt = at
	return nil
}

func (r *MemoryRegistrationRepository) GetExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var regs []*domain.Registration
	for _, reg := range r.regs {
		if reg.Status == domain.RegistrationStatusPending && reg.ExpiresAt.Before(cutoff) {
			cp := *reg
			regs = append(regs, &cp)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].ExpiresAt.Before(regs[j].ExpiresAt)
	})
	if limit > 0 && limit < len(regs) {
		regs = regs[:limit]
	}
	return regs, nil
}

var _ RegistrationRepository = (*MemoryRegistrationRepository)(nil)
