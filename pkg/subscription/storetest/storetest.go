// Package storetest holds behavioural tests shared by every subscription
// store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/subscription"
)

// Backend is a store under test. SaveProfile seeds the profiles the engine
// only ever reads.
type Backend interface {
	subscription.ReadWriter
	subscription.Profiles
	SaveProfile(ctx context.Context, p subscription.Profile) error
}

// Run exercises b. newBackend must return an empty backend on every call.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()
	base := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		trialStart := base.Add(-14 * 24 * time.Hour)
		trialEnd := base
		subStart := base.Add(time.Hour)
		subEnd := base.AddDate(1, 0, 0)
		rec := &subscription.Record{
			ID:                     "sync-1",
			UserID:                 uuid.New(),
			Status:                 subscription.StatusCancelScheduled,
			Type:                   subscription.TypeYearly,
			TrialStart:             &trialStart,
			TrialEnd:               &trialEnd,
			SubscriptionStart:      &subStart,
			SubscriptionEnd:        &subEnd,
			ExternalSubscriptionID: "sub_01",
			UpdatedAt:              base.Add(2 * time.Hour),
		}
		require.NoError(t, b.Save(ctx, rec))

		got, err := b.FindByUserID(ctx, rec.UserID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Status, got.Status)
		assert.Equal(t, rec.Type, got.Type)
		assert.Equal(t, rec.ExternalSubscriptionID, got.ExternalSubscriptionID)
		assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))
		require.NotNil(t, got.SubscriptionEnd)
		assert.True(t, subEnd.Equal(*got.SubscriptionEnd))
		require.NotNil(t, got.TrialEnd)
		assert.True(t, trialEnd.Equal(*got.TrialEnd))
	})

	t.Run("optional fields stay empty", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		rec := &subscription.Record{UserID: uuid.New(), Status: subscription.StatusFreeTrial, Type: subscription.TypeFree, UpdatedAt: base}
		require.NoError(t, b.Save(ctx, rec))

		got, err := b.FindByUserID(ctx, rec.UserID)
		require.NoError(t, err)
		assert.Empty(t, got.ID)
		assert.Nil(t, got.TrialEnd)
		assert.Nil(t, got.SubscriptionStart)
		assert.Nil(t, got.SubscriptionEnd)
	})

	t.Run("save replaces the user's record", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		rec := subscription.NewTrialRecord(uuid.New(), base)
		require.NoError(t, b.Save(ctx, rec))

		rec.Status = subscription.StatusPro
		rec.Type = subscription.TypeMonthly
		rec.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, b.Save(ctx, rec))

		got, err := b.FindByUserID(ctx, rec.UserID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPro, got.Status)
		assert.Equal(t, subscription.TypeMonthly, got.Type)
	})

	t.Run("create never overwrites", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		id := uuid.New()

		created, err := b.Create(ctx, subscription.NewTrialRecord(id, base))
		require.NoError(t, err)
		assert.True(t, created)

		pro := &subscription.Record{UserID: id, Status: subscription.StatusPro, Type: subscription.TypeMonthly, UpdatedAt: base.Add(time.Hour)}
		require.NoError(t, b.Save(ctx, pro))

		created, err = b.Create(ctx, subscription.NewTrialRecord(id, base.Add(2*time.Hour)))
		require.NoError(t, err)
		assert.False(t, created)

		got, err := b.FindByUserID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPro, got.Status)
		assert.True(t, pro.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := newBackend(t).FindByUserID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, subscription.ErrRecordNotFound)
	})

	t.Run("rejects records without user", func(t *testing.T) {
		b := newBackend(t)
		assert.ErrorIs(t, b.Save(context.Background(), &subscription.Record{Status: subscription.StatusPro}), subscription.ErrMissingUserID)
		assert.ErrorIs(t, b.Save(context.Background(), nil), subscription.ErrInvalidRecord)
		_, err := b.Create(context.Background(), &subscription.Record{Status: subscription.StatusFreeTrial})
		assert.ErrorIs(t, err, subscription.ErrMissingUserID)
	})

	t.Run("find updated since", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		save := func(status subscription.Status, typ subscription.Type, updated time.Time) uuid.UUID {
			id := uuid.New()
			require.NoError(t, b.Save(ctx, &subscription.Record{UserID: id, Status: status, Type: typ, UpdatedAt: updated}))
			return id
		}
		since := base.Add(-24 * time.Hour)

		onBoundary := save(subscription.StatusPro, subscription.TypeMonthly, since)
		inside := save(subscription.StatusPro, subscription.TypeYearly, base.Add(-time.Hour))
		save(subscription.StatusPro, subscription.TypeMonthly, since.Add(-time.Microsecond))
		save(subscription.StatusActive, subscription.TypeMonthly, base)
		cancelled := save(subscription.StatusCancelled, subscription.TypeFree, base.Add(-2*time.Hour))
		save(subscription.StatusCancelled, subscription.TypeMonthly, base.Add(-2*time.Hour))

		pro, err := b.FindUpdatedSince(ctx, subscription.StatusPro, "", since)
		require.NoError(t, err)
		require.Len(t, pro, 2)
		assert.Equal(t, onBoundary, pro[0].UserID)
		assert.Equal(t, inside, pro[1].UserID)

		free, err := b.FindUpdatedSince(ctx, subscription.StatusCancelled, subscription.TypeFree, since)
		require.NoError(t, err)
		require.Len(t, free, 1)
		assert.Equal(t, cancelled, free[0].UserID)

		none, err := b.FindUpdatedSince(ctx, subscription.StatusExpired, "", since)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("profiles", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		id := uuid.New()

		_, err := b.FindProfile(ctx, id)
		assert.ErrorIs(t, err, subscription.ErrProfileNotFound)

		trialEnd := base.Add(48 * time.Hour)
		require.NoError(t, b.SaveProfile(ctx, subscription.Profile{
			UserID: id,
			Email:  "grace@example.com",
			Name:   "Grace",
			Fallback: subscription.FallbackMetadata{
				Status:   subscription.StatusFreeTrial,
				TrialEnd: &trialEnd,
			},
		}))

		p, err := b.FindProfile(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, p.UserID)
		assert.Equal(t, "grace@example.com", p.Email)
		assert.Equal(t, "Grace", p.Name)
		assert.Equal(t, subscription.StatusFreeTrial, p.Fallback.Status)
		assert.Empty(t, p.Fallback.Type)
		require.NotNil(t, p.Fallback.TrialEnd)
		assert.True(t, trialEnd.Equal(*p.Fallback.TrialEnd))
	})
}
