package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("DATABASE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "0.008", cfg.Accounting.MonthlyYieldRate.String())
	assert.Equal(t, 7, cfg.Accounting.SettlementDays)
	assert.False(t, cfg.Formance.Enabled())
	assert.False(t, cfg.Prime.Enabled())
	assert.False(t, cfg.Listener.Enabled)
	assert.Equal(t, time.Minute, cfg.Listener.PollingInterval)
	assert.Equal(t, time.Hour, cfg.Listener.RetryWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("VAULT_MONTHLY_YIELD_RATE", "0.01")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.assetbridge.io")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "0.01", cfg.Accounting.MonthlyYieldRate.String())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://app.assetbridge.io"}, cfg.Server.AllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"JWT_TTL": "forever"}},
		{"bad decimal", map[string]string{"VAULT_MONTHLY_YIELD_RATE": "abc"}},
		{"negative yield", map[string]string{"VAULT_MONTHLY_YIELD_RATE": "-0.1"}},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql"}},
		{"pgx without url", map[string]string{"DATABASE_DRIVER": "pgx"}},
		{"unknown strategy", map[string]string{"VAULT_DEFAULT_STRATEGY": "yolo"}},
		{"production dev secret", map[string]string{"APP_ENV": "production", "JWT_SECRET": ""}},
		{"zero poll interval", map[string]string{"SETTLEMENT_POLL_INTERVAL": "0s"}},
		{"listener without prime", map[string]string{"SETTLEMENT_LISTENER_ENABLED": "true", "PRIME_ACCESS_KEY": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
