package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SQLite sums NUMERIC columns in floating point
const sumScale = 8

func scanVault(row rowScanner) (*models.Vault, error) {
	var v models.Vault
	var deposited, balance, accrued string
	var lastRebalance sql.NullTime
	err := row.Scan(&v.Id, &v.UserId, &v.Strategy, &deposited, &balance, &accrued,
		&v.RebalanceSchedule, &lastRebalance, &v.Version, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}

	var d decimals
	v.TotalDeposited = d.parse("total_deposited", deposited)
	v.CurrentBalance = d.parse("current_balance", balance)
	v.YieldAccrued = d.parse("yield_accrued", accrued)
	if d.err != nil {
		return nil, d.err
	}
	v.LastRebalance = timePtr(lastRebalance)
	return &v, nil
}

// GetVault returns the user's vault without its history (O(1) lookup)
func (s *Service) GetVault(ctx context.Context, userId string) (*models.Vault, error) {
	zap.L().Debug("Getting vault", zap.String("user_id", userId))

	vault, err := scanVault(s.db.QueryRowContext(ctx, s.q(queryGetVault), userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		zap.L().Error("Failed to get vault", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return vault, nil
}

func (s *Service) ListVaults(ctx context.Context) ([]models.Vault, error) {
	rows, err := s.db.QueryContext(ctx, s.q(queryListVaults))
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	defer closeRows(rows)

	var vaults []models.Vault
	for rows.Next() {
		vault, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vault: %w", err)
		}
		vaults = append(vaults, *vault)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during vault row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating vault rows: %w", err)
	}
	return vaults, nil
}

// SumVaultTransactions recomputes a vault balance from its history
func (s *Service) SumVaultTransactions(ctx context.Context, vaultId string) (decimal.Decimal, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, s.q(queryReconcileVault), vaultId).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("failed to calculate balance from transactions: %w", err)
	}
	calculated, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse calculated balance '%s': %w", raw, err)
	}
	return calculated.Round(sumScale), nil
}

// JournalTotals returns total debits and credits across the journal
func (s *Service) JournalTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var debits, credits string
	if err := s.db.QueryRowContext(ctx, s.q(queryJournalTotals)).Scan(&debits, &credits); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to total journal: %w", err)
	}
	var d decimals
	debitTotal := d.parse("debits", debits).Round(sumScale)
	creditTotal := d.parse("credits", credits).Round(sumScale)
	return debitTotal, creditTotal, d.err
}
