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

package accounting

import (
	"context"
	"time"

	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Mirror receives a copy of every committed money movement
type Mirror interface {
	MirrorInvestment(ctx context.Context, deal models.Deal, position models.Position) error
	MirrorVaultTransaction(ctx context.Context, transaction models.VaultTransaction) error
}

// PayoutRequest asks the payout provider to send a settled withdrawal
type PayoutRequest struct {
	TransactionId      string
	UserId             string
	DestinationAddress string
	Amount             decimal.Decimal
}

// Payout sends funds for a pending withdrawal and returns the provider reference
type Payout interface {
	SendPayout(ctx context.Context, req PayoutRequest) (string, error)
}

// Service is the investment accounting core. Every counter mutation goes
// through a version-guarded store write and is retried on conflict after
// re-reading and re-validating.
type Service struct {
	store     store.LedgerStore
	cfg       models.AccountingConfig
	publisher events.Publisher
	mirror    Mirror
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.LedgerStore, cfg models.AccountingConfig, opts ...Option) *Service {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 5
	}
	if !cfg.MonthlyYieldRate.IsPositive() {
		cfg.MonthlyYieldRate = decimal.RequireFromString("0.008")
	}
	if cfg.SettlementDays < 1 {
		cfg.SettlementDays = 7
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = models.StrategyBalanced
	}
	if cfg.RebalanceSchedule == "" {
		cfg.RebalanceSchedule = "quarterly"
	}

	s := &Service{
		store:     st,
		cfg:       cfg,
		publisher: events.NopPublisher{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective accounting configuration
func (s *Service) Config() models.AccountingConfig {
	return s.cfg
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		zap.L().Warn("Failed to publish event",
			zap.String("type", event.Type),
			zap.String("key", event.Key),
			zap.Error(err))
	}
}

func (s *Service) mirrorTransaction(ctx context.Context, transaction models.VaultTransaction) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.MirrorVaultTransaction(ctx, transaction); err != nil {
		zap.L().Warn("Failed to mirror vault transaction",
			zap.String("transaction_id", transaction.Id),
			zap.String("type", transaction.Type),
			zap.Error(err))
	}
}
