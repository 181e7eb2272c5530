/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
)

// DevJWTSecret is only accepted outside production
const DevJWTSecret = "assetbridge-dev-secret"

func Load() (*models.Config, error) {
	durations := map[string]*time.Duration{}
	defaults := []struct {
		key string
		def time.Duration
	}{
		{"HTTP_READ_TIMEOUT", 15 * time.Second},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second},
		{"HTTP_SHUTDOWN_TIMEOUT", 10 * time.Second},
		{"DB_CONN_MAX_LIFETIME", 5 * time.Minute},
		{"DB_CONN_MAX_IDLE_TIME", 30 * time.Second},
		{"DB_PING_TIMEOUT", 5 * time.Second},
		{"DB_BUSY_TIMEOUT", 5 * time.Second},
		{"JWT_TTL", 7 * 24 * time.Hour},
		{"PERSONA_TIMEOUT", 10 * time.Second},
		{"RATE_LIMIT_WINDOW", 15 * time.Minute},
		{"SETTLEMENT_POLL_INTERVAL", time.Minute},
		{"SETTLEMENT_CLEANUP_INTERVAL", 10 * time.Minute},
		{"SETTLEMENT_RETRY_WINDOW", time.Hour},
	}
	for _, d := range defaults {
		value, err := getEnvDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		durations[d.key] = &value
	}

	yieldRate, err := getEnvDecimal("VAULT_MONTHLY_YIELD_RATE", decimal.RequireFromString("0.008"))
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Env: getEnvString("APP_ENV", "development"),
		Server: models.ServerConfig{
			Addr:            getEnvString("HTTP_ADDR", ":3001"),
			ReadTimeout:     *durations["HTTP_READ_TIMEOUT"],
			WriteTimeout:    *durations["HTTP_WRITE_TIMEOUT"],
			ShutdownTimeout: *durations["HTTP_SHUTDOWN_TIMEOUT"],
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxBodyBytes:    int64(getEnvInt("HTTP_MAX_BODY_BYTES", 10<<20)),
		},
		Database: models.DatabaseConfig{
			Driver:          getEnvString("DATABASE_DRIVER", "sqlite3"),
			Path:            getEnvString("DATABASE_PATH", "assetbridge.db"),
			URL:             getEnvString("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: *durations["DB_CONN_MAX_LIFETIME"],
			ConnMaxIdleTime: *durations["DB_CONN_MAX_IDLE_TIME"],
			PingTimeout:     *durations["DB_PING_TIMEOUT"],
			BusyTimeout:     *durations["DB_BUSY_TIMEOUT"],
		},
		Auth: models.AuthConfig{
			JWTSecret: getEnvString("JWT_SECRET", DevJWTSecret),
			Issuer:    getEnvString("JWT_ISSUER", "assetbridge-nexus"),
			TokenTTL:  *durations["JWT_TTL"],
		},
		Accounting: models.AccountingConfig{
			MonthlyYieldRate:   yieldRate,
			MaxRetries:         getEnvInt("ACCOUNTING_MAX_RETRIES", 5),
			SettlementDays:     getEnvInt("WITHDRAWAL_SETTLEMENT_DAYS", 7),
			DefaultStrategy:    getEnvString("VAULT_DEFAULT_STRATEGY", models.StrategyBalanced),
			RebalanceSchedule:  getEnvString("VAULT_REBALANCE_SCHEDULE", "quarterly"),
			SettlementBatchMax: getEnvInt("SETTLEMENT_BATCH_MAX", 100),
		},
		Persona: models.PersonaConfig{
			APIURL:        getEnvString("PERSONA_API_URL", "https://withpersona.com/api/v1"),
			APIKey:        getEnvString("PERSONA_API_KEY", ""),
			TemplateId:    getEnvString("PERSONA_TEMPLATE_ID", ""),
			WebhookSecret: getEnvString("PERSONA_WEBHOOK_SECRET", ""),
			Timeout:       *durations["PERSONA_TIMEOUT"],
		},
		Stripe: models.StripeConfig{
			SecretKey:   getEnvString("STRIPE_SECRET_KEY", ""),
			Currency:    getEnvString("STRIPE_CURRENCY", "usd"),
			PricingFile: getEnvString("PRICING_FILE", ""),
		},
		Redis: models.RedisConfig{
			Addr:            getEnvString("REDIS_ADDR", ""),
			Password:        getEnvString("REDIS_PASS", ""),
			DB:              getEnvInt("REDIS_DB", 0),
			RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
			RateLimitWindow: *durations["RATE_LIMIT_WINDOW"],
		},
		Kafka: models.KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnvString("KAFKA_TOPIC", "assetbridge.events"),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientId:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER_NAME", "assetbridge"),
		},
		Prime: models.PrimeConfig{
			AccessKey:   getEnvString("PRIME_ACCESS_KEY", ""),
			Passphrase:  getEnvString("PRIME_PASSPHRASE", ""),
			SigningKey:  getEnvString("PRIME_SIGNING_KEY", ""),
			PortfolioId: getEnvString("PRIME_PORTFOLIO_ID", ""),
			WalletId:    getEnvString("PRIME_PAYOUT_WALLET_ID", ""),
			Asset:       getEnvString("PRIME_PAYOUT_ASSET", "USDC"),
		},
		Listener: models.ListenerConfig{
			Enabled:         getEnvBool("SETTLEMENT_LISTENER_ENABLED", false),
			PollingInterval: *durations["SETTLEMENT_POLL_INTERVAL"],
			CleanupInterval: *durations["SETTLEMENT_CLEANUP_INTERVAL"],
			RetryWindow:     *durations["SETTLEMENT_RETRY_WINDOW"],
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	switch cfg.Database.Driver {
	case "sqlite3":
		if cfg.Database.Path == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite3 driver")
		}
	case "pgx":
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the pgx driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want sqlite3 or pgx)", cfg.Database.Driver)
	}
	if cfg.IsProduction() && (cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == DevJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if cfg.Accounting.MaxRetries < 1 {
		return fmt.Errorf("ACCOUNTING_MAX_RETRIES must be at least 1, got %d", cfg.Accounting.MaxRetries)
	}
	if !cfg.Accounting.MonthlyYieldRate.IsPositive() {
		return fmt.Errorf("VAULT_MONTHLY_YIELD_RATE must be positive, got %s", cfg.Accounting.MonthlyYieldRate)
	}
	if !isStrategy(cfg.Accounting.DefaultStrategy) {
		return fmt.Errorf("VAULT_DEFAULT_STRATEGY %q is not a known strategy", cfg.Accounting.DefaultStrategy)
	}
	if cfg.Listener.PollingInterval <= 0 || cfg.Listener.CleanupInterval <= 0 {
		return fmt.Errorf("SETTLEMENT_POLL_INTERVAL and SETTLEMENT_CLEANUP_INTERVAL must be positive")
	}
	if cfg.Listener.Enabled && !cfg.Prime.Enabled() {
		return fmt.Errorf("SETTLEMENT_LISTENER_ENABLED needs PRIME_ACCESS_KEY, PRIME_PASSPHRASE and PRIME_SIGNING_KEY")
	}
	return nil
}

func isStrategy(s string) bool {
	for _, strategy := range models.Strategies {
		if strategy == s {
			return true
		}
	}
	return false
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
