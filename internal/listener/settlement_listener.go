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

package listener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assetbridge-nexus/internal/accounting"
	"assetbridge-nexus/internal/models"

	"go.uber.org/zap"
)

// Settler is the part of the accounting service the listener drives
type Settler interface {
	ListPendingWithdrawals(ctx context.Context, limit int) ([]models.VaultTransaction, error)
	PayoutWithdrawal(ctx context.Context, payout accounting.Payout, withdrawal models.VaultTransaction) accounting.SettlementOutcome
}

type SettlementListenerConfig struct {
	Settler         Settler
	Payout          accounting.Payout
	BatchSize       int
	SettlementDays  int
	PollingInterval time.Duration
	CleanupInterval time.Duration
	RetryWindow     time.Duration
}

// SettlementListener pays out pending vault withdrawals on a fixed interval.
// Withdrawals that had to be skipped are deferred for RetryWindow so one
// user without a payout address does not flood the logs on every poll.
type SettlementListener struct {
	settler Settler
	payout  accounting.Payout

	batchSize      int
	settlementDays int

	// State management for deferred withdrawals
	deferredTxIds   map[string]time.Time
	mutex           sync.RWMutex
	pollingInterval time.Duration
	cleanupInterval time.Duration
	retryWindow     time.Duration
	now             func() time.Time

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	started  bool
	stopOnce sync.Once
}

func NewSettlementListener(cfg SettlementListenerConfig) *SettlementListener {
	return &SettlementListener{
		settler:         cfg.Settler,
		payout:          cfg.Payout,
		batchSize:       cfg.BatchSize,
		settlementDays:  cfg.SettlementDays,
		deferredTxIds:   make(map[string]time.Time),
		pollingInterval: cfg.PollingInterval,
		cleanupInterval: cfg.CleanupInterval,
		retryWindow:     cfg.RetryWindow,
		now:             func() time.Time { return time.Now().UTC() },
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start checks the backlog and begins polling for pending withdrawals
func (l *SettlementListener) Start(ctx context.Context) error {
	zap.L().Info("Starting settlement listener")

	if l.settler == nil || l.payout == nil {
		return fmt.Errorf("settlement listener needs a settler and a payout provider")
	}
	if l.pollingInterval <= 0 || l.cleanupInterval <= 0 {
		return fmt.Errorf("polling and cleanup intervals must be positive")
	}

	if err := l.performStartupRecovery(ctx); err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}

	l.started = true
	go l.pollLoop(ctx)
	go l.cleanupLoop(ctx)

	zap.L().Info("Settlement listener started successfully",
		zap.Duration("polling_interval", l.pollingInterval),
		zap.Duration("retry_window", l.retryWindow))
	return nil
}

// Stop gracefully stops the listener and waits for an in-flight poll
func (l *SettlementListener) Stop() {
	l.stopOnce.Do(func() {
		zap.L().Info("Stopping settlement listener")
		close(l.stopChan)
		if l.started {
			<-l.doneChan
		}
		zap.L().Info("Settlement listener stopped")
	})
}

func (l *SettlementListener) pollLoop(ctx context.Context) {
	defer close(l.doneChan)

	ticker := time.NewTicker(l.pollingInterval)
	defer ticker.Stop()

	l.poll(ctx)

	for {
		select {
		case <-ticker.C:
			l.poll(ctx)
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// poll attempts up to batchSize of the oldest pending withdrawals that are
// not deferred. Deferred rows stay at the head of the pending list, so the
// fetch reaches past them.
func (l *SettlementListener) poll(ctx context.Context) *models.SettlementReport {
	report := &models.SettlementReport{Settled: []string{}, Reversed: []string{}, Skipped: []string{}}

	pending, err := l.settler.ListPendingWithdrawals(ctx, l.batchSize+l.deferredCount())
	if err != nil {
		zap.L().Error("Failed to list pending withdrawals", zap.Error(err))
		return report
	}

	deferred, attempted := 0, 0
	for _, withdrawal := range pending {
		if ctx.Err() != nil || attempted == l.batchSize {
			break
		}
		if l.isDeferred(withdrawal.Id) {
			deferred++
			continue
		}
		attempted++

		switch l.settler.PayoutWithdrawal(ctx, l.payout, withdrawal) {
		case accounting.OutcomeSettled:
			report.Settled = append(report.Settled, withdrawal.Id)
		case accounting.OutcomeReversed:
			report.Reversed = append(report.Reversed, withdrawal.Id)
		default:
			l.markDeferred(withdrawal.Id)
			report.Skipped = append(report.Skipped, withdrawal.Id)
		}
	}

	if len(pending) > 0 {
		zap.L().Info("Settlement poll finished",
			zap.Int("pending", len(pending)),
			zap.Int("settled", len(report.Settled)),
			zap.Int("reversed", len(report.Reversed)),
			zap.Int("skipped", len(report.Skipped)),
			zap.Int("deferred", deferred))
	}
	return report
}

// performStartupRecovery reports the backlog left over from downtime and
// flags withdrawals already past their settlement window
func (l *SettlementListener) performStartupRecovery(ctx context.Context) error {
	pending, err := l.settler.ListPendingWithdrawals(ctx, l.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending withdrawals: %w", err)
	}

	overdue := l.overdue(pending)
	for _, withdrawal := range overdue {
		zap.L().Warn("Withdrawal overdue for settlement",
			zap.String("transaction_id", withdrawal.Id),
			zap.String("user_id", withdrawal.UserId),
			zap.String("amount", withdrawal.Amount.StringFixed(2)),
			zap.Time("requested_at", withdrawal.CreatedAt))
	}

	zap.L().Info("Settlement backlog",
		zap.Int("pending", len(pending)),
		zap.Int("overdue", len(overdue)),
		zap.Int("settlement_days", l.settlementDays))
	return nil
}

// overdue returns the withdrawals requested more than settlementDays ago
func (l *SettlementListener) overdue(pending []models.VaultTransaction) []models.VaultTransaction {
	if l.settlementDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -l.settlementDays)

	var overdue []models.VaultTransaction
	for _, withdrawal := range pending {
		if withdrawal.CreatedAt.Before(cutoff) {
			overdue = append(overdue, withdrawal)
		}
	}
	return overdue
}
