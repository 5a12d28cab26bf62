package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/environment"
	"github.com/contentplan/backend/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults to json info", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))

		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("hello", logger.Transition("pro_started"))
		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "pro_started", entry["transition"])
	})

	t.Run("production environment", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithEnvironment(environment.Production, "contentplan"),
		)

		log.Info("up")
		entry := decode(t, buf)
		assert.Equal(t, "contentplan", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("development environment is text at debug", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithEnvironment(environment.Development, "contentplan"),
		)

		log.Debug("tick")
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "msg=tick")
	})

	t.Run("config overrides", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithEnvironment(environment.Development, "contentplan"),
			logger.WithConfig(logger.Config{Level: "warn", Format: "JSON"}),
		)

		log.Info("dropped")
		assert.Empty(t, buf.String())
		log.Warn("kept")
		assert.Equal(t, "WARN", decode(t, buf)["level"])
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			logger.New(logger.WithFormat("xml"))
		})
	})
}

type ctxKey struct{}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithContextExtractors(
			func(ctx context.Context) (slog.Attr, bool) {
				v, ok := ctx.Value(ctxKey{}).(string)
				return slog.String("run_id", v), ok
			},
			nil,
		),
	).With(logger.Component("reconcile"))

	log.InfoContext(context.WithValue(context.Background(), ctxKey{}, "r-1"), "run")
	entry := decode(t, buf)
	assert.Equal(t, "r-1", entry["run_id"])
	assert.Equal(t, "reconcile", entry["component"])

	buf.Reset()
	log.InfoContext(context.Background(), "run")
	_, ok := decode(t, buf)["run_id"]
	assert.False(t, ok)
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "error", logger.Error(errors.New("x")).Key)
	assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
	assert.Equal(t, "errors", logger.Errors(nil, errors.New("x")).Key)
	assert.Equal(t, slog.Attr{}, logger.UserID(nil))
	assert.Equal(t, slog.Attr{}, logger.RequestID(""))
	assert.Equal(t, slog.String("request_id", "abc"), logger.RequestID("abc"))
	assert.Equal(t, slog.String("template", "pro_cancelled"), logger.Template("pro_cancelled"))
	assert.Equal(t, slog.Int("processed", 3), logger.Count("processed", 3))
	assert.Equal(t, slog.String("status", "pro"), logger.Status("pro"))
}
