package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "directory.yaml", cfg.Directory)
	assert.Equal(t, "file", cfg.Store)
	assert.Equal(t, "navhub.json", cfg.StorePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 25*time.Second, cfg.FetchTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NAVHUB_ADDR", "127.0.0.1:9000")
	t.Setenv("NAVHUB_STORE", "sqlite")
	t.Setenv("NAVHUB_STORE_PATH", "/tmp/navhub.db")
	t.Setenv("NAVHUB_LOG_LEVEL", "debug")
	t.Setenv("NAVHUB_FETCH_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "/tmp/navhub.db", cfg.StorePath)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("store kind", func(t *testing.T) {
		t.Setenv("NAVHUB_STORE", "redis")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("log level", func(t *testing.T) {
		t.Setenv("NAVHUB_LOG_LEVEL", "loud")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("duration", func(t *testing.T) {
		t.Setenv("NAVHUB_FETCH_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("memory store needs no path", func(t *testing.T) {
		cfg := Config{Store: "memory", Directory: "d.yaml", LogLevel: "info"}
		assert.NoError(t, cfg.Validate())
	})
}
