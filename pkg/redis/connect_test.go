package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/redis"
)

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: "://bad"}, logger.Noop())
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	cfg := redis.Config{
		ConnectionURL:  "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	}
	_, err := redis.Connect(context.Background(), cfg, logger.Noop())
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
}
