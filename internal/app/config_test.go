package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("GREENLIFE_API_URL", "https://api.greenlife.test/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.greenlife.test", cfg.APIURL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.HasServiceAccount())
}

func TestLoadConfigRequiresAPIURL(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("GREENLIFE_API_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigPageSize(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("GREENLIFE_API_URL", "http://localhost:9000")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("SERVICE_ACCOUNT_USERNAME", "watcher")
	t.Setenv("SERVICE_ACCOUNT_PASSWORD", "pw")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.PageSize)
	assert.True(t, cfg.HasServiceAccount())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
