package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("NOTIFY_SINK", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, SinkLog, cfg.Notification.Sink)
	assert.Equal(t, "/files", cfg.Storage.PublicBaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("NOTIFY_SINK", "KAFKA")
	t.Setenv("NOTIFY_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example.com/files/")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, SinkKafka, cfg.Notification.Sink)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notification.KafkaBrokers)
	assert.Equal(t, "https://cdn.example.com/files", cfg.Storage.PublicBaseURL)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Notification.Sink = SinkKafka
	cfg.Notification.KafkaBrokers = nil
	assert.Error(t, cfg.Validate())

	cfg.Notification.Sink = "pigeon"
	assert.Error(t, cfg.Validate())

	cfg.Notification.Sink = SinkRedis
	cfg.App.Env = "production"
	cfg.Auth.JWTSecret = "dev-secret"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}
