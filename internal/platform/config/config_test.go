package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"LUMINE_ADDR", "RATE_LIMIT_WINDOW_MS", "RATE_LIMIT_MAX", "DATABASE_URL", "REDIS_URL", "ENFORCE_RBAC"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(4*1024*1024), cfg.Server.MaxPayloadBytes)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30, cfg.RateLimit.Max)
	assert.InDelta(t, 0.01, cfg.RateLimit.CleanupSampleRate, 1e-9)
	assert.False(t, cfg.Identity.EnforceRBAC)
	assert.Empty(t, cfg.Postgres.URL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1000")
	t.Setenv("RATE_LIMIT_MAX", "2")
	t.Setenv("ENFORCE_RBAC", "true")
	t.Setenv("MIRROR_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("REDIS_READ_TIMEOUT", "750ms")
	t.Setenv("RATE_LIMIT_CLEANUP_SAMPLE_RATE", "7")
	t.Setenv("ORIGINS_ALLOWLIST", "https://a.example,https://b.example")
	t.Setenv("BOOTSTRAP_PROFILES", "u-1:admin")

	cfg := FromEnv()

	assert.Equal(t, time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 2, cfg.RateLimit.Max)
	assert.True(t, cfg.Identity.EnforceRBAC)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Mirror.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Redis.ReadTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"u-1:admin"}, cfg.Identity.BootstrapProfiles)
	// out of range probability falls back to the default
	assert.InDelta(t, 0.01, cfg.RateLimit.CleanupSampleRate, 1e-9)
}
