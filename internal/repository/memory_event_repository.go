package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/attendly/ticketing/internal/domain"
)

// MemoryEventRepository is an in-memory EventRepository.
type MemoryEventRepository struct {
	mu     sync.Mutex
	events map[string]*domain.Event
}

// NewMemoryEventRepository creates a new MemoryEventRepository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{events: make(map[string]*domain.Event)}
}

func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	cp := *event
	return &cp, nil
}

func (r *MemoryEventRepository) GetByOrganizerID(ctx context.Context, organizerID string, limit, offset int) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []*domain.Event
	for _, event := range r.events {
		if event.OrganizerID == organizerID {
			cp := *event
			events = append(events, &cp)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if offset >= len(events) {
		return nil, nil
	}
	events = events[offset:]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events, nil
}

func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}

	existing.Name = event.Name
	existing.Description = event.Description
	existing.StartTime = event.StartTime
	existing.EndTime = event.EndTime
	existing.Timezone = event.Timezone
	existing.RegOpensAt = event.RegOpensAt
	existing.RegClosesAt = event.RegClosesAt
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryEventRepository) UpdateStatus(ctx context.Context, id string, from, to domain.EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !from.CanTransitionTo(to) {
		return domain.ErrInvalidEventStatus
	}
	event, ok := r.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	if event.Status != from {
		return domain.ErrInvalidEventStatus
	}
	event.Status = to
	event.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	if event.Status != domain.EventStatusDraft {
		return domain.ErrEventNotDraft
	}
	delete(r.events, id)
	return nil
}

var _ EventRepository = (*MemoryEventRepository)(nil)
