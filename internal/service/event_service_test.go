package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/dto"
	"github.com/attendly/ticketing/internal/repository"
)

func newEventFixture(t *testing.T) (EventService, *repository.MemoryEventRepository, *repository.MemoryTierRepository) {
	t.Helper()
	eventRepo := repository.NewMemoryEventRepository()
	tierRepo := repository.NewMemoryTierRepository()
	return NewEventService(eventRepo, tierRepo), eventRepo, tierRepo
}

func createDraftEvent(t *testing.T, svc EventService) *dto.EventResponse {
	t.Helper()
	now := time.Now()
	resp, err := svc.CreateEvent(context.Background(), "org-001", &dto.CreateEventRequest{
		Name:        "GopherCon",
		StartTime:   now.Add(48 * time.Hour),
		EndTime:     now.Add(56 * time.Hour),
		RegOpensAt:  now,
		RegClosesAt: now.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	return resp
}

func TestEventService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("create starts in draft", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		resp := createDraftEvent(t, svc)
		if resp.Status != string(domain.EventStatusDraft) {
			t.Errorf("status = %s, want draft", resp.Status)
		}
		if resp.Timezone != "UTC" {
			t.Errorf("timezone = %s, want UTC default", resp.Timezone)
		}
	})

	t.Run("publish then complete", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		resp := createDraftEvent(t, svc)

		if err := svc.PublishEvent(ctx, resp.ID, "org-001"); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if err := svc.CompleteEvent(ctx, resp.ID, "org-001"); err != nil {
			t.Fatalf("complete: %v", err)
		}

		got, err := svc.GetEvent(ctx, resp.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != string(domain.EventStatusCompleted) {
			t.Errorf("status = %s, want completed", got.Status)
		}
	})

	t.Run("publish twice fails", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		resp := createDraftEvent(t, svc)

		if err := svc.PublishEvent(ctx, resp.ID, "org-001"); err != nil {
			t.Fatalf("publish: %v", err)
		}
		err := svc.PublishEvent(ctx, resp.ID, "org-001")
		if !errors.Is(err, domain.ErrInvalidEventStatus) {
			t.Errorf("error = %v, want ErrInvalidEventStatus", err)
		}
	})

	t.Run("cancel requires published", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		resp := createDraftEvent(t, svc)

		err := svc.CancelEvent(ctx, resp.ID, "org-001")
		if !errors.Is(err, domain.ErrInvalidEventStatus) {
			t.Errorf("error = %v, want ErrInvalidEventStatus", err)
		}
	})

	t.Run("delete only while draft", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		resp := createDraftEvent(t, svc)

		if err := svc.PublishEvent(ctx, resp.ID, "org-001"); err != nil {
			t.Fatalf("publish: %v", err)
		}
		err := svc.DeleteEvent(ctx, resp.ID, "org-001")
		if !errors.Is(err, domain.ErrEventNotDraft) {
			t.Errorf("error = %v, want ErrEventNotDraft", err)
		}
	})

	t.Run("other organizer cannot see the event", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		resp := createDraftEvent(t, svc)

		err := svc.PublishEvent(ctx, resp.ID, "org-999")
		if !errors.Is(err, domain.ErrEventNotFound) {
			t.Errorf("error = %v, want ErrEventNotFound", err)
		}
	})
}

func TestEventService_Tiers(t *testing.T) {
	ctx := context.Background()

	t.Run("create and list tiers", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		event := createDraftEvent(t, svc)

		tier, err := svc.CreateTier(ctx, event.ID, "org-001", &dto.CreateTierRequest{
			Name:      "General Admission",
			Capacity:  100,
			UnitPrice: 2500,
			Currency:  "USD",
		})
		if err != nil {
			t.Fatalf("CreateTier() error = %v", err)
		}
		if tier.Available != 100 {
			t.Errorf("available = %d, want 100", tier.Available)
		}

		tiers, err := svc.GetEventTiers(ctx, event.ID)
		if err != nil {
			t.Fatalf("GetEventTiers() error = %v", err)
		}
		if len(tiers) != 1 {
			t.Errorf("tiers = %d, want 1", len(tiers))
		}
	})

	t.Run("unsupported currency rejected", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		event := createDraftEvent(t, svc)

		_, err := svc.CreateTier(ctx, event.ID, "org-001", &dto.CreateTierRequest{
			Name:      "GA",
			Capacity:  10,
			UnitPrice: 100,
			Currency:  "XYZ",
		})
		if !errors.Is(err, domain.ErrInvalidCurrency) {
			t.Errorf("error = %v, want ErrInvalidCurrency", err)
		}
	})

	t.Run("update blocked while inventory held", func(t *testing.T) {
		svc, _, tierRepo := newEventFixture(t)
		event := createDraftEvent(t, svc)

		tier, err := svc.CreateTier(ctx, event.ID, "org-001", &dto.CreateTierRequest{
			Name:      "GA",
			Capacity:  10,
			UnitPrice: 100,
			Currency:  "USD",
		})
		if err != nil {
			t.Fatalf("create tier: %v", err)
		}

		if err := tierRepo.Reserve(ctx, tier.ID, 1); err != nil {
			t.Fatalf("reserve: %v", err)
		}

		_, err = svc.UpdateTier(ctx, tier.ID, "org-001", &dto.UpdateTierRequest{
			Name:      "GA v2",
			Capacity:  20,
			UnitPrice: 200,
			Currency:  "USD",
		})
		if !errors.Is(err, domain.ErrTierInUse) {
			t.Errorf("error = %v, want ErrTierInUse", err)
		}
	})

	t.Run("delete blocked while inventory held", func(t *testing.T) {
		svc, _, tierRepo := newEventFixture(t)
		event := createDraftEvent(t, svc)

		tier, err := svc.CreateTier(ctx, event.ID, "org-001", &dto.CreateTierRequest{
			Name:      "GA",
			Capacity:  10,
			UnitPrice: 100,
			Currency:  "USD",
		})
		if err != nil {
			t.Fatalf("create tier: %v", err)
		}

		if err := tierRepo.Reserve(ctx, tier.ID, 1); err != nil {
			t.Fatalf("reserve: %v", err)
		}

		err = svc.DeleteTier(ctx, tier.ID, "org-001")
		if !errors.Is(err, domain.ErrTierInUse) {
			t.Errorf("error = %v, want ErrTierInUse", err)
		}
	})

	t.Run("tier hidden from other organizers", func(t *testing.T) {
		svc, _, _ := newEventFixture(t)
		event := createDraftEvent(t, svc)

		tier, err := svc.CreateTier(ctx, event.ID, "org-001", &dto.CreateTierRequest{
			Name:      "GA",
			Capacity:  10,
			UnitPrice: 100,
			Currency:  "USD",
		})
		if err != nil {
			t.Fatalf("create tier: %v", err)
		}

		err = svc.DeleteTier(ctx, tier.ID, "org-999")
		if !errors.Is(err, domain.ErrTierNotFound) {
			t.Errorf("error = %v, want ErrTierNotFound", err)
		}
	})
}
