package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PARCELS_PATH", "testdata/parcels.geojson")
	t.Setenv("FRAME_RATE", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api", c.APIBase)
	assert.Equal(t, 60, c.FrameRate)
	assert.Equal(t, time.Second/60, c.FrameInterval())
	assert.Equal(t, "127.0.0.1:6379", c.RedisAddr)
	assert.False(t, c.RedisEnabled)
	assert.Equal(t, 30*time.Second, c.DatasetLoadTimeout)
	assert.Zero(t, c.DatasetRefresh)
	assert.Empty(t, c.WSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PARCELS_URL", "http://localhost/laplata.geojson")
	t.Setenv("API_BASE", "/v1/")
	t.Setenv("FRAME_RATE", "30")
	t.Setenv("DATASET_LOAD_TIMEOUT", "5")
	t.Setenv("RESOLVE_CACHE_TTL", "90s")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("DATASET_REFRESH_INTERVAL", "15m")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://map.example, ,http://localhost:5173")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/v1", c.APIBase)
	assert.Equal(t, 30, c.FrameRate)
	assert.Equal(t, 5*time.Second, c.DatasetLoadTimeout)
	assert.Equal(t, 90*time.Second, c.ResolveTTL)
	assert.True(t, c.RedisEnabled)
	assert.Equal(t, "cache:6380", c.RedisAddr)
	assert.Equal(t, "http://localhost/laplata.geojson", c.ParcelsURL)
	assert.Equal(t, 15*time.Minute, c.DatasetRefresh)
	assert.Equal(t, []string{"https://map.example", "http://localhost:5173"}, c.WSAllowedOrigins)
}

func TestLoad_RejectsBadFrameRate(t *testing.T) {
	t.Setenv("FRAME_RATE", "0")
	_, err := Load()
	assert.Error(t, err)
}
