package worker

import (
	"context"
	"testing"
	"time"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/gateway"
	"github.com/attendly/ticketing/internal/repository"
	"github.com/attendly/ticketing/internal/service"
)

func newWorkerFixture(t *testing.T) (service.RegistrationService, *repository.MemoryRegistrationRepository, *repository.MemoryTierRepository) {
	t.Helper()
	ctx := context.Background()

	regRepo := repository.NewMemoryRegistrationRepository()
	tierRepo := repository.NewMemoryTierRepository()
	eventRepo := repository.NewMemoryEventRepository()

	now := time.Now()
	if err := eventRepo.Create(ctx, &domain.Event{
		ID:          "event-001",
		OrganizerID: "org-001",
		Name:        "GopherCon",
		Status:      domain.EventStatusPublished,
		StartTime:   now.Add(48 * time.Hour),
		EndTime:     now.Add(56 * time.Hour),
		Timezone:    "UTC",
		RegOpensAt:  now.Add(-time.Hour),
		RegClosesAt: now.Add(24 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := tierRepo.Create(ctx, &domain.TicketTier{
		ID:        "tier-001",
		EventID:   "event-001",
		Name:      "GA",
		Capacity:  10,
		UnitPrice: 1000,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create tier: %v", err)
	}

	gw := gateway.NewMockGateway(&gateway.MockGatewayConfig{SuccessRate: 1.0})
	svc := service.NewRegistrationService(regRepo, tierRepo, eventRepo, gw, nil, nil)
	return svc, regRepo, tierRepo
}

func seedLapsedPending(t *testing.T, regRepo *repository.MemoryRegistrationRepository, tierRepo *repository.MemoryTierRepository, id string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	if err := tierRepo.Reserve(ctx, "tier-001", 1); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := regRepo.Create(ctx, &domain.Registration{
		ID:        id,
		EventID:   "event-001",
		TierID:    "tier-001",
		UserID:    "user-001",
		Quantity:  1,
		Status:    domain.RegistrationStatusPending,
		Amount:    1000,
		Currency:  "USD",
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-20 * time.Minute),
		UpdatedAt: now.Add(-20 * time.Minute),
	}); err != nil {
		t.Fatalf("create registration: %v", err)
	}
}

func TestExpiryWorker_Sweep(t *testing.T) {
	svc, regRepo, tierRepo := newWorkerFixture(t)
	seedLapsedPending(t, regRepo, tierRepo, "reg-001")
	seedLapsedPending(t, regRepo, tierRepo, "reg-002")

	w := NewExpiryWorker(svc, &ExpiryWorkerConfig{
		ScanInterval: time.Hour,
		BatchSize:    100,
	})

	w.sweep(context.Background())

	stats := w.GetStats()
	if stats.TotalExpired != 2 {
		t.Errorf("total expired = %d, want 2", stats.TotalExpired)
	}
	if stats.LastExpiredCount != 2 {
		t.Errorf("last expired = %d, want 2", stats.LastExpiredCount)
	}

	for _, id := range []string{"reg-001", "reg-002"} {
		reg, err := regRepo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if reg.Status != domain.RegistrationStatusCancelled {
			t.Errorf("%s status = %s, want cancelled", id, reg.Status)
		}
	}

	avail, err := tierRepo.Availability(context.Background(), "tier-001")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if avail.Available != 10 {
		t.Errorf("availability = %d, want 10", avail.Available)
	}
}

func TestExpiryWorker_StartStop(t *testing.T) {
	svc, regRepo, tierRepo := newWorkerFixture(t)
	seedLapsedPending(t, regRepo, tierRepo, "reg-001")

	w := NewExpiryWorker(svc, &ExpiryWorkerConfig{
		ScanInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("second start should fail")
	}

	deadline := time.After(2 * time.Second)
	for {
		reg, err := regRepo.GetByID(context.Background(), "reg-001")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if reg.Status == domain.RegistrationStatusCancelled {
			break
		}
		select {
		case <-deadline:
			t.Fatal("registration was not expired in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	w.Stop()
	// Second stop is a no-op
	w.Stop()

	if w.GetStats().IsRunning {
		t.Error("worker still reports running after stop")
	}
}
