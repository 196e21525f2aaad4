package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/ticketing/internal/domain"
)

func newTestTier(id string, capacity int) *domain.TicketTier {
	now := time.Now()
	return &domain.TicketTier{
		ID:        id,
		EventID:   "event-1",
		Name:      "General Admission",
		Capacity:  capacity,
		UnitPrice: 2500,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryTierRepository_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves within capacity", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))

		err := repo.Reserve(ctx, "tier-1", 4)
		require.NoError(t, err)

		avail, err := repo.Availability(ctx, "tier-1")
		require.NoError(t, err)
		assert.Equal(t, 6, avail.Available)
	})

	t.Run("rejects over capacity", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 3)))

		err := repo.Reserve(ctx, "tier-1", 4)
		assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)

		avail, err := repo.Availability(ctx, "tier-1")
		require.NoError(t, err)
		assert.Equal(t, 3, avail.Available)
	})

	t.Run("counts reserved and confirmed against capacity", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))

		require.NoError(t, repo.Reserve(ctx, "tier-1", 5))
		require.NoError(t, repo.ConfirmReserved(ctx, "tier-1", 5))
		require.NoError(t, repo.Reserve(ctx, "tier-1", 5))

		err := repo.Reserve(ctx, "tier-1", 1)
		assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
	})

	t.Run("unknown tier", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		err := repo.Reserve(ctx, "missing", 1)
		assert.ErrorIs(t, err, domain.ErrTierNotFound)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))

		assert.ErrorIs(t, repo.Reserve(ctx, "tier-1", 0), domain.ErrInvalidQuantity)
		assert.ErrorIs(t, repo.Reserve(ctx, "tier-1", -2), domain.ErrInvalidQuantity)
	})
}

func TestMemoryTierRepository_ConcurrentReserve_NoOversell(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTierRepository()
	require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 50)))

	var wg sync.WaitGroup
	successes := make(chan struct{}, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Reserve(ctx, "tier-1", 1); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	assert.Equal(t, 50, len(successes))

	avail, err := repo.Availability(ctx, "tier-1")
	require.NoError(t, err)
	assert.Equal(t, 0, avail.Available)
}

func TestMemoryTierRepository_ConfirmReserved(t *testing.T) {
	ctx := context.Background()

	t.Run("moves reserved to confirmed", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))
		require.NoError(t, repo.Reserve(ctx, "tier-1", 3))

		require.NoError(t, repo.ConfirmReserved(ctx, "tier-1", 3))

		tier, err := repo.GetByID(ctx, "tier-1")
		require.NoError(t, err)
		assert.Equal(t, 0, tier.Reserved)
		assert.Equal(t, 3, tier.Confirmed)
	})

	t.Run("rejects confirming more than reserved", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))
		require.NoError(t, repo.Reserve(ctx, "tier-1", 2))

		err := repo.ConfirmReserved(ctx, "tier-1", 3)
		assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
	})
}

func TestMemoryTierRepository_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("release reserved restores availability", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))
		require.NoError(t, repo.Reserve(ctx, "tier-1", 5))

		require.NoError(t, repo.Release(ctx, "tier-1", 5, BucketReserved))

		avail, err := repo.Availability(ctx, "tier-1")
		require.NoError(t, err)
		assert.Equal(t, 10, avail.Available)
	})

	t.Run("release confirmed bumps cancelled counter", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))
		require.NoError(t, repo.Reserve(ctx, "tier-1", 4))
		require.NoError(t, repo.ConfirmReserved(ctx, "tier-1", 4))

		require.NoError(t, repo.Release(ctx, "tier-1", 4, BucketConfirmed))

		tier, err := repo.GetByID(ctx, "tier-1")
		require.NoError(t, err)
		assert.Equal(t, 0, tier.Confirmed)
		assert.Equal(t, 4, tier.Cancelled)
		assert.Equal(t, 10, tier.Available())
	})

	t.Run("rejects releasing more than held", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))
		require.NoError(t, repo.Reserve(ctx, "tier-1", 2))

		err := repo.Release(ctx, "tier-1", 3, BucketReserved)
		assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
	})
}

func TestMemoryTierRepository_UpdateInactive(t *testing.T) {
	ctx := context.Background()

	t.Run("updates while idle", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))

		updated := newTestTier("tier-1", 20)
		updated.Name = "VIP"
		require.NoError(t, repo.UpdateInactive(ctx, updated))

		tier, err := repo.GetByID(ctx, "tier-1")
		require.NoError(t, err)
		assert.Equal(t, "VIP", tier.Name)
		assert.Equal(t, 20, tier.Capacity)
	})

	t.Run("rejects while inventory held", func(t *testing.T) {
		repo := NewMemoryTierRepository()
		require.NoError(t, repo.Create(ctx, newTestTier("tier-1", 10)))
		require.NoError(t, repo.Reserve(ctx, "tier-1", 1))

		err := repo.UpdateInactive(ctx, newTestTier("tier-1", 20))
		assert.ErrorIs(t, err, domain.ErrTierInUse)
	})
}

func TestMemoryRegistrationRepository_Transitions(t *testing.T) {
	ctx := context.Background()

	newPending := func(id string) *domain.Registration {
		now := time.Now()
		return &domain.Registration{
			ID:        id,
			EventID:   "event-1",
			TierID:    "tier-1",
			UserID:    "user-1",
			Quantity:  2,
			Status:    domain.RegistrationStatusPending,
			Amount:    5000,
			Currency:  "USD",
			ExpiresAt: now.Add(15 * time.Minute),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("confirm wins once", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		require.NoError(t, repo.Create(ctx, newPending("reg-1")))

		require.NoError(t, repo.Confirm(ctx, "reg-1", "ABCD1234"))

		err := repo.Confirm(ctx, "reg-1", "EFGH5678")
		assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)

		reg, err := repo.GetByID(ctx, "reg-1")
		require.NoError(t, err)
		assert.Equal(t, "ABCD1234", reg.ConfirmationCode)
		require.NotNil(t, reg.ConfirmedAt)
	})

	t.Run("transition guarded on current status", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		require.NoError(t, repo.Create(ctx, newPending("reg-1")))
		require.NoError(t, repo.Confirm(ctx, "reg-1", "ABCD1234"))

		err := repo.Transition(ctx, "reg-1", domain.RegistrationStatusPending, domain.RegistrationStatusCancelled, "user cancelled")
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

		require.NoError(t, repo.Transition(ctx, "reg-1", domain.RegistrationStatusConfirmed, domain.RegistrationStatusCancelled, "user cancelled"))

		reg, err := repo.GetByID(ctx, "reg-1")
		require.NoError(t, err)
		assert.Equal(t, domain.RegistrationStatusCancelled, reg.Status)
		assert.Equal(t, "user cancelled", reg.StatusReason)
		require.NotNil(t, reg.CancelledAt)
	})

	t.Run("check in requires confirmed and unset flag", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		require.NoError(t, repo.Create(ctx, newPending("reg-1")))

		err := repo.SetCheckedIn(ctx, "reg-1", time.Now())
		assert.ErrorIs(t, err, domain.ErrRegistrationNotConfirmed)

		require.NoError(t, repo.Confirm(ctx, "reg-1", "ABCD1234"))
		require.NoError(t, repo.SetCheckedIn(ctx, "reg-1", time.Now()))

		err = repo.SetCheckedIn(ctx, "reg-1", time.Now())
		assert.ErrorIs(t, err, domain.ErrAlreadyCheckedIn)
	})

	t.Run("expired pending scan honors cutoff and limit", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		now := time.Now()
		for i, id := range []string{"reg-1", "reg-2", "reg-3"} {
			reg := newPending(id)
			reg.ExpiresAt = now.Add(time.Duration(-i-1) * time.Minute)
			require.NoError(t, repo.Create(ctx, reg))
		}
		fresh := newPending("reg-4")
		fresh.ExpiresAt = now.Add(time.Hour)
		require.NoError(t, repo.Create(ctx, fresh))

		regs, err := repo.GetExpiredPending(ctx, now, 2)
		require.NoError(t, err)
		require.Len(t, regs, 2)
		assert.Equal(t, "reg-3", regs[0].ID)
		assert.Equal(t, "reg-2", regs[1].ID)
	})

	t.Run("idempotency key lookup returns nil when absent", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		reg, err := repo.GetByIdempotencyKey(ctx, "user-001", "missing-key")
		require.NoError(t, err)
		assert.Nil(t, reg)
	})

	t.Run("idempotency key is scoped per user", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		now := time.Now()
		reg := &domain.Registration{
			ID:             "reg-1",
			EventID:        "event-001",
			TierID:         "tier-001",
			UserID:         "user-001",
			Quantity:       1,
			Status:         domain.RegistrationStatusPending,
			Amount:         2500,
			Currency:       "USD",
			IdempotencyKey: "shared-key",
			ExpiresAt:      now.Add(15 * time.Minute),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, repo.Create(ctx, reg))

		found, err := repo.GetByIdempotencyKey(ctx, "user-001", "shared-key")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "reg-1", found.ID)

		other, err := repo.GetByIdempotencyKey(ctx, "user-002", "shared-key")
		require.NoError(t, err)
		assert.Nil(t, other)
	})
}
