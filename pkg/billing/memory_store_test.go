package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trackkit/pkg/billing"
)

func TestMemorySubscriptionStore(t *testing.T) {
	t.Parallel()

	store := billing.NewMemorySubscriptionStore()
	ctx := context.Background()

	_, err := store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)

	sub := &billing.Subscription{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		PaddlePlanID: "552110",
		Status:       billing.StatusActive,
	}
	require.NoError(t, store.Save(ctx, sub))

	got, err := store.Get(ctx, sub.UserID)
	require.NoError(t, err)
	assert.Equal(t, sub.PaddlePlanID, got.PaddlePlanID)

	// Saving again under the same user replaces the snapshot.
	sub.Status = billing.StatusDeleted
	require.NoError(t, store.Save(ctx, sub))
	got, err = store.Get(ctx, sub.UserID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusDeleted, got.Status)
}

func TestMemoryEnterprisePlanStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.New()

	store := billing.NewMemoryEnterprisePlanStore(
		billing.EnterprisePlan{UserID: userID, PaddlePlanID: "ent_1", CreatedAt: now.Add(-time.Hour)},
	)
	store.Add(billing.EnterprisePlan{UserID: userID, PaddlePlanID: "ent_1", CreatedAt: now})
	store.Add(billing.EnterprisePlan{UserID: uuid.New(), PaddlePlanID: "ent_2", CreatedAt: now})

	t.Run("lists plans per user", func(t *testing.T) {
		t.Parallel()
		plans, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, plans, 2)

		plans, err = store.ListByUser(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, plans)
	})

	t.Run("newest plan wins for a reissued product id", func(t *testing.T) {
		t.Parallel()
		plan, err := store.GetByProductID(ctx, "ent_1")
		require.NoError(t, err)
		assert.Equal(t, now, plan.CreatedAt)
	})

	t.Run("unknown product id is not found", func(t *testing.T) {
		t.Parallel()
		_, err := store.GetByProductID(ctx, "ent_404")
		assert.ErrorIs(t, err, billing.ErrEnterprisePlanNotFound)
	})
}
