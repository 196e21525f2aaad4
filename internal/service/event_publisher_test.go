package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/attendly/ticketing/internal/domain"
)

// MockEventPublisher records published registrations for assertions
type MockEventPublisher struct {
	mu              sync.Mutex
	createdEvents   []*domain.Registration
	confirmedEvents []*domain.Registration
	cancelledEvents []*domain.Registration
	expiredEvents   []*domain.Registration
	checkedInEvents []*domain.Registration
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishRegistrationCreated(ctx context.Context, reg *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdEvents = append(m.createdEvents, reg)
	return nil
}

func (m *MockEventPublisher) PublishRegistrationConfirmed(ctx context.Context, reg *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmedEvents = append(m.confirmedEvents, reg)
	return nil
}

func (m *MockEventPublisher) PublishRegistrationCancelled(ctx context.Context, reg *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelledEvents = append(m.cancelledEvents, reg)
	return nil
}

func (m *MockEventPublisher) PublishRegistrationExpired(ctx context.Context, reg *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiredEvents = append(m.expiredEvents, reg)
	return nil
}

func (m *MockEventPublisher) PublishRegistrationCheckedIn(ctx context.Context, reg *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkedInEvents = append(m.checkedInEvents, reg)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

func (m *MockEventPublisher) Counts() (created, confirmed, cancelled, expired, checkedIn int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.createdEvents), len(m.confirmedEvents), len(m.cancelledEvents), len(m.expiredEvents), len(m.checkedInEvents)
}

func TestNewKafkaEventPublisher_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewKafkaEventPublisher(ctx, nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewKafkaEventPublisher(ctx, &EventPublisherConfig{}); err == nil {
		t.Error("expected error for missing brokers")
	}
}

func TestNoOpEventPublisher(t *testing.T) {
	ctx := context.Background()
	p := NewNoOpEventPublisher()

	reg := &domain.Registration{ID: "reg-001"}
	if err := p.PublishRegistrationCreated(ctx, reg); err != nil {
		t.Errorf("created: %v", err)
	}
	if err := p.PublishRegistrationConfirmed(ctx, reg); err != nil {
		t.Errorf("confirmed: %v", err)
	}
	if err := p.PublishRegistrationCancelled(ctx, reg); err != nil {
		t.Errorf("cancelled: %v", err)
	}
	if err := p.PublishRegistrationExpired(ctx, reg); err != nil {
		t.Errorf("expired: %v", err)
	}
	if err := p.PublishRegistrationCheckedIn(ctx, reg); err != nil {
		t.Errorf("checked in: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestRegistrationEvent_Envelope(t *testing.T) {
	now := time.Now()
	reg := &domain.Registration{
		ID:       "reg-001",
		EventID:  "event-001",
		TierID:   "tier-001",
		UserID:   "user-001",
		Quantity: 3,
		Status:   domain.RegistrationStatusConfirmed,
		Amount:   7500,
		Currency: "USD",
		ExpiresAt: now.Add(15 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	}

	event := domain.NewRegistrationEvent(domain.RegistrationEventConfirmed, reg, "evt-123")

	if event.Key() != "reg-001" {
		t.Errorf("key = %s, want reg-001", event.Key())
	}
	if event.Type != domain.RegistrationEventConfirmed {
		t.Errorf("type = %s, want registration.confirmed", event.Type)
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded domain.RegistrationEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.RegistrationID != "reg-001" || decoded.Amount != 7500 {
		t.Errorf("roundtrip mismatch: %+v", decoded)
	}
}
