package accounting

import (
	"context"
	"errors"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ReconcileVaultKind   = "vault"
	ReconcileDealKind    = "deal"
	ReconcileJournalKind = "journal"
)

// journalTotaler is implemented by stores that keep a double-entry journal
type journalTotaler interface {
	JournalTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
}

// ReconcileVault compares the stored balance with the signed sum of the
// vault's transaction history.
func (s *Service) ReconcileVault(ctx context.Context, userId string) (*models.ReconcileResult, error) {
	vault, err := s.loadVault(ctx, userId)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, errs.NotFound("Vault not found")
	}
	return s.reconcileVault(ctx, *vault)
}

func (s *Service) reconcileVault(ctx context.Context, vault models.Vault) (*models.ReconcileResult, error) {
	calculated, err := s.store.SumVaultTransactions(ctx, vault.Id)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &models.ReconcileResult{
		Kind:       ReconcileVaultKind,
		Id:         vault.UserId,
		Stored:     vault.CurrentBalance,
		Calculated: calculated,
		Balanced:   vault.CurrentBalance.Equal(calculated) && !vault.CurrentBalance.IsNegative(),
	}, nil
}

// ReconcileDeal checks that the raised amount equals the sum of positions
// and stays within the target.
func (s *Service) ReconcileDeal(ctx context.Context, dealId string) (*models.ReconcileResult, error) {
	deal, err := s.store.GetDeal(ctx, dealId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("Deal not found")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return s.reconcileDeal(ctx, *deal)
}

func (s *Service) reconcileDeal(ctx context.Context, deal models.Deal) (*models.ReconcileResult, error) {
	calculated, err := s.store.SumPositions(ctx, deal.Id)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &models.ReconcileResult{
		Kind:       ReconcileDealKind,
		Id:         deal.Id,
		Stored:     deal.CurrentRaised,
		Calculated: calculated,
		Balanced:   deal.CurrentRaised.Equal(calculated) && !deal.CurrentRaised.GreaterThan(deal.TargetAmount),
	}, nil
}

// ReconcileAll checks every deal, every vault and, when available, that
// journal debits equal credits.
func (s *Service) ReconcileAll(ctx context.Context) ([]models.ReconcileResult, error) {
	var results []models.ReconcileResult

	deals, err := s.store.ListDeals(ctx, store.DealFilter{Limit: -1})
	if err != nil {
		return nil, errs.Internal(err)
	}
	for _, deal := range deals {
		result, err := s.reconcileDeal(ctx, deal)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	vaults, err := s.store.ListVaults(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	for _, vault := range vaults {
		result, err := s.reconcileVault(ctx, vault)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if journal, ok := s.store.(journalTotaler); ok {
		debits, credits, err := journal.JournalTotals(ctx)
		if err != nil {
			return nil, errs.Internal(err)
		}
		results = append(results, models.ReconcileResult{
			Kind:       ReconcileJournalKind,
			Id:         "journal_entries",
			Stored:     debits,
			Calculated: credits,
			Balanced:   debits.Equal(credits),
		})
	}

	for _, result := range results {
		if !result.Balanced {
			zap.L().Error("Ledger out of balance",
				zap.String("kind", result.Kind),
				zap.String("id", result.Id),
				zap.String("stored", result.Stored.String()),
				zap.String("calculated", result.Calculated.String()))
		}
	}
	return results, nil
}
