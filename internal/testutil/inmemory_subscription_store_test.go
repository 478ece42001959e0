package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSub(subscriberID int64, expiry time.Time) *subscription.Subscription {
	now := time.Now().UTC()
	return &subscription.Subscription{
		SubscriberID: subscriberID,
		PlanTier:     types.PlanTierBasic,
		ExpiryTime:   expiry,
		GrantedBy:    1,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestInMemoryStoreUpsertPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySubscriptionStore(types.RetirementModeSoft)

	first := seedSub(42, time.Now().UTC().Add(time.Hour))
	created, err := store.Upsert(ctx, first)
	require.NoError(t, err)

	renewal := seedSub(42, time.Now().UTC().Add(2*time.Hour))
	renewal.CreatedAt = renewal.CreatedAt.Add(time.Hour)
	renewed, err := store.Upsert(ctx, renewal)
	require.NoError(t, err)

	assert.Equal(t, created.CreatedAt, renewed.CreatedAt)
	assert.Equal(t, renewal.ExpiryTime, renewed.ExpiryTime)
}

func TestInMemoryStoreUpsertPreservesProfileName(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySubscriptionStore(types.RetirementModeSoft)

	first := seedSub(42, time.Now().UTC().Add(time.Hour))
	first.ProfileName = "Alice"
	_, err := store.Upsert(ctx, first)
	require.NoError(t, err)

	// An empty name on renewal keeps the previous snapshot; a non-empty
	// name replaces it.
	renewal := seedSub(42, time.Now().UTC().Add(2*time.Hour))
	renewed, err := store.Upsert(ctx, renewal)
	require.NoError(t, err)
	assert.Equal(t, "Alice", renewed.ProfileName)

	renewal = seedSub(42, time.Now().UTC().Add(3*time.Hour))
	renewal.ProfileName = "Alice Smith"
	renewed, err = store.Upsert(ctx, renewal)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", renewed.ProfileName)
}

func TestInMemoryStoreGetActive(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySubscriptionStore(types.RetirementModeSoft)

	_, err := store.GetActiveBySubscriber(ctx, 42)
	assert.True(t, ierr.IsNotFound(err))

	_, err = store.Upsert(ctx, seedSub(42, time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)
	sub, err := store.GetActiveBySubscriber(ctx, 42)
	require.NoError(t, err)
	assert.True(t, sub.IsActive)

	// Expired records are not "active" even before retirement.
	_, err = store.Upsert(ctx, seedSub(43, time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, err)
	_, err = store.GetActiveBySubscriber(ctx, 43)
	assert.True(t, ierr.IsNotFound(err))
}

func TestInMemoryStoreFindExpiredActive(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySubscriptionStore(types.RetirementModeSoft)
	now := time.Now().UTC()

	_, err := store.Upsert(ctx, seedSub(1, now.Add(-time.Minute)))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, seedSub(2, now.Add(time.Minute)))
	require.NoError(t, err)

	expired, err := store.FindExpiredActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(1), expired[0].SubscriberID)
}

func TestInMemoryStoreRetire(t *testing.T) {
	ctx := context.Background()

	t.Run("soft retirement keeps the record", func(t *testing.T) {
		store := NewInMemorySubscriptionStore(types.RetirementModeSoft)
		_, err := store.Upsert(ctx, seedSub(42, time.Now().UTC()))
		require.NoError(t, err)

		require.NoError(t, store.Retire(ctx, 42))
		sub := store.Get(42)
		require.NotNil(t, sub)
		assert.False(t, sub.IsActive)
	})

	t.Run("hard retirement deletes the record", func(t *testing.T) {
		store := NewInMemorySubscriptionStore(types.RetirementModeHard)
		_, err := store.Upsert(ctx, seedSub(42, time.Now().UTC()))
		require.NoError(t, err)

		require.NoError(t, store.Retire(ctx, 42))
		assert.Nil(t, store.Get(42))
	})

	t.Run("retiring an absent record is a no-op success", func(t *testing.T) {
		store := NewInMemorySubscriptionStore(types.RetirementModeSoft)
		assert.NoError(t, store.Retire(ctx, 4242))
	})
}

func TestInMemoryStoreListAll(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySubscriptionStore(types.RetirementModeSoft)
	now := time.Now().UTC()

	for i, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		_, err := store.Upsert(ctx, seedSub(int64(i+1), now.Add(offset)))
		require.NoError(t, err)
	}

	all, err := store.ListAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(2), all[0].SubscriberID)
	assert.Equal(t, int64(3), all[1].SubscriberID)
	assert.Equal(t, int64(1), all[2].SubscriberID)
}

func TestInMemoryStoreCopiesRecords(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySubscriptionStore(types.RetirementModeSoft)

	sub := seedSub(42, time.Now().UTC().Add(time.Hour))
	stored, err := store.Upsert(ctx, sub)
	require.NoError(t, err)

	// Mutating what the caller holds must not reach the store.
	stored.IsActive = false
	assert.True(t, store.Get(42).IsActive)
}
