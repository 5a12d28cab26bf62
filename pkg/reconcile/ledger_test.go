package reconcile_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/reconcile"
)

func TestLedgerKey(t *testing.T) {
	t.Parallel()
	id := uuid.MustParse("7f1a3c52-0c2e-4f55-9d49-1b0a3c1d2e3f")
	at := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)

	assert.Equal(t, reconcile.LedgerKey(id, "pro_started", at), reconcile.LedgerKey(id, "pro_started", at.In(time.FixedZone("CEST", 7200))))
	assert.NotEqual(t, reconcile.LedgerKey(id, "pro_started", at), reconcile.LedgerKey(id, "pro_cancelled", at))
	assert.NotEqual(t, reconcile.LedgerKey(id, "pro_started", at), reconcile.LedgerKey(id, "pro_started", at.Add(time.Nanosecond)))
}

func TestMemoryLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reserve once", func(t *testing.T) {
		t.Parallel()
		l := reconcile.NewMemoryLedger(0)

		fresh, err := l.Reserve(ctx, "k")
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = l.Reserve(ctx, "k")
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Equal(t, 1, l.Len())
	})

	t.Run("release frees key", func(t *testing.T) {
		t.Parallel()
		l := reconcile.NewMemoryLedger(0)

		_, _ = l.Reserve(ctx, "k")
		require.NoError(t, l.Release(ctx, "k"))
		fresh, err := l.Reserve(ctx, "k")
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()
		l := reconcile.NewMemoryLedger(time.Hour)
		clock := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)
		l.SetClock(func() time.Time { return clock })

		_, _ = l.Reserve(ctx, "k")
		clock = clock.Add(59 * time.Minute)
		assert.Equal(t, 1, l.Len())

		clock = clock.Add(time.Minute)
		assert.Equal(t, 0, l.Len())
		fresh, _ := l.Reserve(ctx, "k")
		assert.True(t, fresh)
	})
}

// Runs against the server named by REDIS_TEST_URL.
func TestRedisLedger(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL is not set")
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := reconcile.NewRedisLedger(client, "contentplan:test:"+uuid.NewString()+":", time.Minute)
	key := reconcile.LedgerKey(uuid.New(), "pro_started", time.Now())

	fresh, err := l.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = l.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, l.Release(ctx, key))
	fresh, err = l.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, fresh)
}
