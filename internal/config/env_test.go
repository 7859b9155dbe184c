package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("SOCIAL_SERVICE_MEDIA_MAX_SIZE", "12M")
	t.Setenv("SOCIAL_SERVICE_MAX_BODY_SIZE", "64MB")
	t.Setenv("SOCIAL_SERVICE_CACHE_PROFILE_TTL", "PT2M")
	t.Setenv("SOCIAL_SERVICE_NOTIFICATION_RETENTION", "P30D")
	t.Setenv("SOCIAL_SERVICE_CORS_ENABLED", "true")
	t.Setenv("SOCIAL_SERVICE_DB_MIGRATE_AT_START", "false")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())

	require.Equal(t, int64(12*1024*1024), cfg.MediaMaxSize)
	require.Equal(t, int64(64*1024*1024), cfg.MaxBodySize)
	require.Equal(t, 2*time.Minute, cfg.CacheProfileTTL)
	require.Equal(t, 30*24*time.Hour, cfg.NotificationRetention)
	require.True(t, cfg.CORSEnabled)
	require.False(t, cfg.DatastoreMigrateAtStart)
}

func TestApplyEnv_RejectsInvalidValues(t *testing.T) {
	t.Setenv("SOCIAL_SERVICE_MEDIA_MAX_SIZE", "lots")
	cfg := DefaultConfig()
	require.ErrorContains(t, cfg.ApplyEnv(), "SOCIAL_SERVICE_MEDIA_MAX_SIZE")
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"90s":     90 * time.Second,
		"PT1H30M": 90 * time.Minute,
		"P1DT2H":  26 * time.Hour,
		"p7d":     7 * 24 * time.Hour,
		"P0DT1S":  time.Second,
	}
	for raw, want := range cases {
		got, err := parseDuration(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "soon", "P", "PT", "P1H", "PT1D", "PT0S", "P1DT1HT2M"} {
		_, err := parseDuration(raw)
		require.Error(t, err, raw)
	}
}

func TestParseMemorySize(t *testing.T) {
	n, err := parseMemorySize("512k")
	require.NoError(t, err)
	require.Equal(t, int64(512*1024), n)

	n, err = parseMemorySize("1G")
	require.NoError(t, err)
	require.Equal(t, int64(1024*1024*1024), n)

	_, err = parseMemorySize("-1")
	require.Error(t, err)
}
