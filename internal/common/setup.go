package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"assetbridge-nexus/internal/accounting"
	"assetbridge-nexus/internal/auth"
	"assetbridge-nexus/internal/database"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/formance"
	"assetbridge-nexus/internal/kyc"
	"assetbridge-nexus/internal/listener"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/premium"
	"assetbridge-nexus/internal/prime"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Config     *models.Config
	DbService  *database.Service
	Publisher  events.Publisher
	Mirror     *formance.Service // nil when no Formance stack is configured
	Redis      *redis.Client     // nil when rate limiting is disabled
	Accounting *accounting.Service
	KYC        *kyc.Service
	Premium    *premium.Service
	Auth       *auth.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the store and wires every service with the
// optional integrations the configuration enables.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{Config: cfg, DbService: dbService, Publisher: events.NopPublisher{}}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Publisher = publisher
	} else {
		zap.L().Info("KAFKA_BROKERS not set, domain events are not published")
	}

	accountingOpts := []accounting.Option{accounting.WithPublisher(services.Publisher)}
	if cfg.Formance.Enabled() {
		mirror, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Mirror = mirror
		accountingOpts = append(accountingOpts, accounting.WithMirror(mirror))
	}

	if cfg.Redis.Addr != "" {
		services.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := services.Redis.Ping(ctx).Err(); err != nil {
			// the limiter fails open, so an unreachable Redis is not fatal
			zap.L().Warn("Redis not reachable, rate limiting will fail open",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	provider, err := kyc.NewProvider(cfg.Persona)
	if err != nil {
		services.Close()
		return nil, err
	}
	if cfg.Persona.WebhookSecret == "" {
		zap.L().Warn("PERSONA_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}

	pricing := premium.DefaultPricing()
	if cfg.Stripe.PricingFile != "" {
		if pricing, err = premium.LoadPricing(cfg.Stripe.PricingFile); err != nil {
			services.Close()
			return nil, err
		}
	}

	services.Accounting = accounting.NewService(dbService, cfg.Accounting, accountingOpts...)
	services.KYC = kyc.NewService(dbService, provider, services.Publisher, cfg.Persona.WebhookSecret)
	services.Premium = premium.NewService(dbService, pricing, premium.NewPaymentProvider(cfg.Stripe),
		services.Publisher, cfg.Accounting.MonthlyYieldRate)
	services.Auth = auth.NewService(dbService, auth.NewTokenIssuer(cfg.Auth))

	zap.L().Info("Services initialized",
		zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0),
		zap.Bool("formance_mirror", services.Mirror != nil),
		zap.Bool("rate_limit", services.Redis != nil))
	return services, nil
}

// InitializePayout connects the Prime payout provider used to settle vault
// withdrawals. It returns an error when Prime credentials are missing.
func InitializePayout(ctx context.Context, cfg *models.Config) (*prime.Service, error) {
	zap.L().Info("Loading Prime API credentials")
	payout, err := prime.NewService(ctx, cfg.Prime)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize Prime payouts: %w", err)
	}
	return payout, nil
}

// InitializeSettlementListener builds a listener that pays out pending
// withdrawals through Prime on the configured interval
func InitializeSettlementListener(ctx context.Context, services *Services) (*listener.SettlementListener, error) {
	payout, err := InitializePayout(ctx, services.Config)
	if err != nil {
		return nil, err
	}
	cfg := services.Config
	return listener.NewSettlementListener(listener.SettlementListenerConfig{
		Settler:         services.Accounting,
		Payout:          payout,
		BatchSize:       cfg.Accounting.SettlementBatchMax,
		SettlementDays:  cfg.Accounting.SettlementDays,
		PollingInterval: cfg.Listener.PollingInterval,
		CleanupInterval: cfg.Listener.CleanupInterval,
		RetryWindow:     cfg.Listener.RetryWindow,
	}), nil
}

func (cs *Services) Close() {
	if cs.Publisher != nil {
		if err := cs.Publisher.Close(); err != nil {
			zap.L().Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if cs.Mirror != nil {
		cs.Mirror.Close()
	}
	if cs.Redis != nil {
		if err := cs.Redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
