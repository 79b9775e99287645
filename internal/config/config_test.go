package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "images", cfg.OSS.Namespace)
	assert.Equal(t, 3, cfg.Upload.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Upload.BaseDelay)
	assert.Equal(t, 168*time.Hour, cfg.Storage.URLTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("OSS_CDN_HOST", "img.example.com")
	t.Setenv("UPLOAD_BASE_DELAY", "250ms")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "img.example.com", cfg.OSS.CDNHost)
	assert.Equal(t, 250*time.Millisecond, cfg.Upload.BaseDelay)
}

func TestLoad_RejectsZeroAttempts(t *testing.T) {
	t.Setenv("UPLOAD_MAX_ATTEMPTS", "0")

	_, _, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("STORAGE_URL_TTL", "soon")

	_, _, err := Load()
	assert.Error(t, err)
}
