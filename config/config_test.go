package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Address)
	require.Equal(t, 30*time.Second, cfg.Server.Timeout)

	require.Equal(t, 50, cfg.DB.MaxOpenConns)
	require.Equal(t, 10, cfg.DB.MaxIdleConns)
	require.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)

	require.Equal(t, "booking-events", cfg.Azure.Topic)
	require.Equal(t, "booking-service", cfg.Azure.Subscription)

	require.Equal(t, 30*time.Second, cfg.Outbox.Interval)
	require.Equal(t, 100, cfg.Outbox.BatchSize)
	require.Equal(t, 10*time.Second, cfg.Outbox.GracePeriod)

	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("BOOKING_SERVER_ADDRESS", "127.0.0.1:9090")
	t.Setenv("BOOKING_AZURE_TOPIC", "staging-booking-events")
	t.Setenv("BOOKING_OUTBOX_BATCH_SIZE", "25")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
	require.Equal(t, "staging-booking-events", cfg.Azure.Topic)
	require.Equal(t, 25, cfg.Outbox.BatchSize)
}

func TestFormatIndex(t *testing.T) {
	cfg := ElasticConfig{Prefix: "booking"}
	require.Equal(t, "booking-audit-facts", FormatIndex(cfg, "audit-facts"))
}
