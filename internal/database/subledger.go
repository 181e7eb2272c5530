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

package database

import (
	"context"
	"fmt"
	"time"

	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ApplyVaultWrite atomically writes the new vault state and appends the
// transaction that explains it. ExpectedVersion 0 creates the vault; a
// concurrent create or a stale version yields ErrConcurrentModification.
func (s *Service) ApplyVaultWrite(ctx context.Context, params store.VaultWriteParams) (*models.VaultTransaction, error) {
	zap.L().Info("Processing vault transaction",
		zap.String("user_id", params.UserId),
		zap.String("type", params.Transaction.Type),
		zap.String("amount", params.Transaction.Amount.String()),
		zap.Int64("expected_version", params.ExpectedVersion))

	t := params.Transaction
	if err := checkStorable(params.TotalDeposited, params.CurrentBalance, params.YieldAccrued,
		t.Amount, t.BalanceBefore, t.BalanceAfter); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	now := time.Now().UTC()
	vaultId := params.VaultId
	if params.ExpectedVersion == 0 {
		if vaultId == "" {
			vaultId = uuid.New().String()
		}
		result, err := tx.ExecContext(ctx, s.q(queryInsertVault),
			vaultId, params.UserId, params.Strategy, params.TotalDeposited.String(),
			params.CurrentBalance.String(), params.YieldAccrued.String(), params.RebalanceSchedule, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create vault: %w", err)
		}
		if err := checkRowsAffected(result, fmt.Errorf("vault create failed - %w", store.ErrConcurrentModification)); err != nil {
			return nil, err
		}
	} else {
		result, err := tx.ExecContext(ctx, s.q(queryUpdateVault),
			params.Strategy, params.TotalDeposited.String(), params.CurrentBalance.String(),
			params.YieldAccrued.String(), now, vaultId, params.ExpectedVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to update vault: %w", err)
		}
		if err := checkRowsAffected(result, fmt.Errorf("vault update failed - %w", store.ErrConcurrentModification)); err != nil {
			return nil, err
		}
	}

	transaction := params.Transaction
	if transaction.Id == "" {
		transaction.Id = uuid.New().String()
	}
	transaction.VaultId = vaultId
	transaction.UserId = params.UserId
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = now
	}
	_, err = tx.ExecContext(ctx, s.q(queryInsertVaultTransaction),
		transaction.Id, vaultId, params.UserId, params.ExpectedVersion+1, transaction.Type,
		transaction.Amount.String(), transaction.BalanceBefore.String(), transaction.BalanceAfter.String(),
		transaction.ExternalRef, transaction.Status, transaction.SettlementRef, transaction.CreatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert vault transaction: %w", err)
	}

	if params.Reverses != "" {
		result, err := tx.ExecContext(ctx, s.q(queryUpdateTransactionStatus),
			models.TxStatusReversed, transaction.Id, now, params.Reverses, models.TxStatusPending)
		if err != nil {
			return nil, fmt.Errorf("failed to mark withdrawal reversed: %w", err)
		}
		if err := checkRowsAffected(result, fmt.Errorf("withdrawal %s no longer pending - %w", params.Reverses, store.ErrConcurrentModification)); err != nil {
			return nil, err
		}
	}

	if !params.EarnedDelta.IsZero() {
		if _, err := tx.ExecContext(ctx, s.q(queryAddUserEarned), params.EarnedDelta.String(), now, params.UserId); err != nil {
			return nil, fmt.Errorf("failed to update user earnings: %w", err)
		}
	}

	if err := s.addJournalEntries(ctx, tx, transaction.Id, vaultJournal(transaction)); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Vault transaction processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", params.UserId),
		zap.String("old_balance", transaction.BalanceBefore.String()),
		zap.String("new_balance", transaction.BalanceAfter.String()))

	return &transaction, nil
}

// UpdateTransactionStatus moves a transaction from change.From to change.To.
// It returns ErrConcurrentModification if the transaction left change.From.
func (s *Service) UpdateTransactionStatus(ctx context.Context, change store.TransactionStatusChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	result, err := tx.ExecContext(ctx, s.q(queryUpdateTransactionStatus),
		change.To, change.SettlementRef, at.UTC(), change.TransactionId, change.From)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if err := checkRowsAffected(result, fmt.Errorf("status change failed - %w", store.ErrConcurrentModification)); err != nil {
		return err
	}

	if change.To == models.TxStatusSettled {
		original, err := scanVaultTransaction(tx.QueryRowContext(ctx, s.q(queryGetVaultTransaction), change.TransactionId))
		if err != nil {
			return err
		}
		entries := []journalEntry{
			{"withdrawals_payable", original.UserId, original.Amount, decimal.Zero},
			{"platform_cash", "vaults", decimal.Zero, original.Amount},
		}
		if err := s.addJournalEntries(ctx, tx, original.Id, entries); err != nil {
			return fmt.Errorf("failed to add journal entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Vault transaction status changed",
		zap.String("transaction_id", change.TransactionId),
		zap.String("from", change.From),
		zap.String("to", change.To),
		zap.String("settlement_ref", change.SettlementRef))
	return nil
}
