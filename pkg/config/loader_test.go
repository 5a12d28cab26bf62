package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/config"
)

type defaultsConfig struct {
	Window      time.Duration `env:"CFG_TEST_WINDOW" envDefault:"24h"`
	Concurrency int           `env:"CFG_TEST_CONCURRENCY" envDefault:"8"`
}

type cachedConfig struct {
	Value string `env:"CFG_TEST_CACHED" envDefault:"first"`
}

type requiredConfig struct {
	Secret string `env:"CFG_TEST_REQUIRED,required"`
}

type fileConfig struct {
	Value string `env:"CFG_TEST_FROM_FILE"`
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse[defaultsConfig]()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Window)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestParse_FromEnv(t *testing.T) {
	t.Setenv("CFG_TEST_WINDOW", "90m")
	t.Setenv("CFG_TEST_CONCURRENCY", "2")

	cfg, err := config.Parse[defaultsConfig]()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.Window)
	assert.Equal(t, 2, cfg.Concurrency)
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := config.Parse[requiredConfig]()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_Cached(t *testing.T) {
	var first cachedConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Value)

	t.Setenv("CFG_TEST_CACHED", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	assert.ErrorIs(t, config.Load[cachedConfig](nil), config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("CFG_TEST_FROM_FILE=from-file\n"), 0o600))
		t.Setenv("CFG_TEST_FROM_FILE", "")
		require.NoError(t, os.Unsetenv("CFG_TEST_FROM_FILE"))

		require.NoError(t, config.LoadEnv(path))

		cfg, err := config.Parse[fileConfig]()
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.Value)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		err := config.LoadEnv(filepath.Join(t.TempDir(), "nope.env"))
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})

	t.Run("missing default file is ignored", func(t *testing.T) {
		assert.NoError(t, config.LoadEnv())
	})
}
