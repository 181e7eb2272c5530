package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Env        string
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Accounting AccountingConfig
	Persona    PersonaConfig
	Stripe     StripeConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Formance   FormanceConfig
	Prime      PrimeConfig
	Listener   ListenerConfig
}

// IsProduction reports whether internal error details must be hidden
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	MaxBodyBytes    int64
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // sqlite3 or pgx
	Path            string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// AccountingConfig holds the tunables of the accounting core
type AccountingConfig struct {
	MonthlyYieldRate   decimal.Decimal
	MaxRetries         int
	SettlementDays     int
	DefaultStrategy    string
	RebalanceSchedule  string
	SettlementBatchMax int
}

// PersonaConfig holds identity-verification provider settings
type PersonaConfig struct {
	APIURL        string
	APIKey        string
	TemplateId    string
	WebhookSecret string
	Timeout       time.Duration
}

// StripeConfig holds payment provider settings
type StripeConfig struct {
	SecretKey   string
	Currency    string
	PricingFile string
}

// RedisConfig holds the rate limiter backend settings
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// KafkaConfig holds domain event publishing settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FormanceConfig holds ledger mirror settings
type FormanceConfig struct {
	StackURL     string
	ClientId     string
	ClientSecret string
	LedgerName   string
}

// Enabled reports whether the ledger mirror is configured
func (c FormanceConfig) Enabled() bool {
	return c.StackURL != "" && c.ClientId != "" && c.ClientSecret != ""
}

// PrimeConfig holds withdrawal payout settings
type PrimeConfig struct {
	AccessKey   string
	Passphrase  string
	SigningKey  string
	PortfolioId string
	WalletId    string
	Asset       string
}

// Enabled reports whether payouts can be sent
func (c PrimeConfig) Enabled() bool {
	return c.AccessKey != "" && c.Passphrase != "" && c.SigningKey != ""
}

// ListenerConfig drives the background settlement listener
type ListenerConfig struct {
	Enabled         bool // start with the API server
	PollingInterval time.Duration
	CleanupInterval time.Duration
	RetryWindow     time.Duration
}
