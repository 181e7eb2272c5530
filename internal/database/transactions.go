package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type journalEntry struct {
	accountType  string
	accountId    string
	debitAmount  decimal.Decimal
	creditAmount decimal.Decimal
}

// vaultJournal returns the double-entry lines for a vault transaction.
// The platform owes vault holders their balance (vault_liability); pending
// withdrawals sit in withdrawals_payable until paid out or reversed.
func vaultJournal(t models.VaultTransaction) []journalEntry {
	switch t.Type {
	case models.TxDeposit:
		return []journalEntry{
			{"platform_cash", "vaults", t.Amount, decimal.Zero},
			{"vault_liability", t.UserId, decimal.Zero, t.Amount},
		}
	case models.TxWithdrawal:
		return []journalEntry{
			{"vault_liability", t.UserId, t.Amount, decimal.Zero},
			{"withdrawals_payable", t.UserId, decimal.Zero, t.Amount},
		}
	case models.TxReversal:
		return []journalEntry{
			{"withdrawals_payable", t.UserId, t.Amount, decimal.Zero},
			{"vault_liability", t.UserId, decimal.Zero, t.Amount},
		}
	case models.TxDividend:
		return []journalEntry{
			{"yield_expense", "vaults", t.Amount, decimal.Zero},
			{"vault_liability", t.UserId, decimal.Zero, t.Amount},
		}
	}
	return nil
}

// addJournalEntries creates double-entry bookkeeping entries
func (s *Service) addJournalEntries(ctx context.Context, tx *sql.Tx, transactionId string, entries []journalEntry) error {
	now := time.Now().UTC()
	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, s.q(queryInsertJournalEntry),
			uuid.New().String(), transactionId, entry.accountType, entry.accountId,
			entry.debitAmount.String(), entry.creditAmount.String(), now)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanVaultTransaction(row rowScanner) (*models.VaultTransaction, error) {
	var t models.VaultTransaction
	var amount, before, after string
	var settledAt sql.NullTime
	err := row.Scan(&t.Id, &t.VaultId, &t.UserId, &t.Type, &amount, &before, &after,
		&t.ExternalRef, &t.Status, &t.SettlementRef, &t.CreatedAt, &settledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vault transaction: %w", err)
	}

	var d decimals
	t.Amount = d.parse("amount", amount)
	t.BalanceBefore = d.parse("balance_before", before)
	t.BalanceAfter = d.parse("balance_after", after)
	if d.err != nil {
		return nil, d.err
	}
	t.SettledAt = timePtr(settledAt)
	return &t, nil
}

func (s *Service) queryVaultTransactions(ctx context.Context, query string, args ...any) ([]models.VaultTransaction, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vault transactions: %w", err)
	}
	defer closeRows(rows)

	transactions := []models.VaultTransaction{}
	for rows.Next() {
		t, err := scanVaultTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

// ListVaultTransactions returns a vault's history in the order it was written
func (s *Service) ListVaultTransactions(ctx context.Context, vaultId string) ([]models.VaultTransaction, error) {
	return s.queryVaultTransactions(ctx, queryGetVaultTransactions, vaultId)
}

func (s *Service) GetVaultTransaction(ctx context.Context, transactionId string) (*models.VaultTransaction, error) {
	return scanVaultTransaction(s.db.QueryRowContext(ctx, s.q(queryGetVaultTransaction), transactionId))
}

// ListPendingWithdrawals returns the oldest pending withdrawals first
func (s *Service) ListPendingWithdrawals(ctx context.Context, limit int) ([]models.VaultTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryVaultTransactions(ctx, queryGetPendingWithdrawals, limit)
}
