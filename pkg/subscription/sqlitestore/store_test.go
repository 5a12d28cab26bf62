package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/subscription"
	"github.com/contentplan/backend/pkg/subscription/sqlitestore"
	"github.com/contentplan/backend/pkg/subscription/storetest"
)

func newStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	ctx := context.Background()

	db, err := sqlitestore.Open(ctx, sqlitestore.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlitestore.Migrate(ctx, db, logger.Noop()))
	return sqlitestore.New(db)
}

func TestStore(t *testing.T) {
	t.Parallel()
	storetest.Run(t, func(t *testing.T) storetest.Backend { return newStore(t) })
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := sqlitestore.Open(ctx, sqlitestore.Config{Path: filepath.Join(t.TempDir(), "nested", "dir", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlitestore.Migrate(ctx, db, logger.Noop()))
	require.NoError(t, sqlitestore.Migrate(ctx, db, logger.Noop()))
	require.NoError(t, sqlitestore.Healthcheck(db)(ctx))
}

func TestStore_ServesGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	bootstrap := uuid.New()
	trialEnd := now.Add(36 * time.Hour)
	require.NoError(t, store.SaveProfile(ctx, subscription.Profile{
		UserID:   bootstrap,
		Email:    "new@example.com",
		Fallback: subscription.FallbackMetadata{Status: subscription.StatusFreeTrial, TrialEnd: &trialEnd},
	}))

	syncer := subscription.NewSyncer(store,
		subscription.WithSyncerClock(func() time.Time { return now }),
		subscription.WithSyncerLogger(logger.Noop()))
	paying := uuid.New()
	require.NoError(t, syncer.Apply(ctx, subscription.Event{
		Type:             subscription.EventStarted,
		UserID:           paying,
		SubscriptionType: subscription.TypeMonthly,
	}))

	gate := subscription.NewGate(store, store,
		subscription.WithGateResolver(subscription.NewResolver(subscription.WithClock(func() time.Time { return now }))),
		subscription.WithGateLogger(logger.Noop()))

	d := gate.Check(ctx, bootstrap)
	assert.True(t, d.Allowed)
	assert.True(t, d.Fallback)
	assert.Equal(t, 2, d.Entitlement.TrialDaysLeft)

	d = gate.Check(ctx, paying)
	assert.True(t, d.Allowed)
	assert.True(t, d.Entitlement.IsPro)

	changed, err := store.FindUpdatedSince(ctx, subscription.StatusPro, "", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, paying, changed[0].UserID)
}
