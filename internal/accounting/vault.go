package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DepositRequest struct {
	UserId      string
	Amount      decimal.Decimal
	Strategy    string
	ExternalRef string
}

type WithdrawRequest struct {
	UserId      string
	Amount      decimal.Decimal
	ExternalRef string
}

// loadVault returns the user's vault or nil when none exists yet
func (s *Service) loadVault(ctx context.Context, userId string) (*models.Vault, error) {
	vault, err := s.store.GetVault(ctx, userId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Internal(fmt.Errorf("failed to load vault for %s: %w", userId, err))
	}
	return vault, nil
}

// GetVault returns the vault with its full transaction history
func (s *Service) GetVault(ctx context.Context, userId string) (*models.Vault, error) {
	vault, err := s.loadVault(ctx, userId)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, errs.NotFound("Vault not found")
	}
	vault.Transactions, err = s.store.ListVaultTransactions(ctx, vault.Id)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return vault, nil
}

// Yields projects the vault's yield with the configured monthly rate
func (s *Service) Yields(ctx context.Context, userId string) (*models.YieldEstimate, error) {
	vault, err := s.loadVault(ctx, userId)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, errs.NotFound("Vault not found")
	}
	estimate := EstimateYield(vault, s.cfg.MonthlyYieldRate)
	return &estimate, nil
}

// Deposit credits the user's vault, creating it on first use
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (*models.DepositResult, error) {
	if err := checkAmount(req.Amount, "Invalid deposit amount"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserId) == "" {
		return nil, errs.Validation("userId is required")
	}
	if req.Strategy != "" && !isStrategy(req.Strategy) {
		return nil, errs.Validation("Invalid strategy %q: must be one of %s", req.Strategy, strings.Join(models.Strategies, ", "))
	}

	return retry(ctx, s, "deposit", req.UserId, func(vault *models.Vault) (*models.DepositResult, error) {
		params := store.VaultWriteParams{
			UserId:            req.UserId,
			Strategy:          s.cfg.DefaultStrategy,
			RebalanceSchedule: s.cfg.RebalanceSchedule,
			TotalDeposited:    req.Amount,
			CurrentBalance:    req.Amount,
			YieldAccrued:      decimal.Zero,
		}
		before := decimal.Zero
		if vault != nil {
			params.VaultId = vault.Id
			params.ExpectedVersion = vault.Version
			params.Strategy = vault.Strategy
			params.RebalanceSchedule = vault.RebalanceSchedule
			params.TotalDeposited = vault.TotalDeposited.Add(req.Amount)
			params.CurrentBalance = vault.CurrentBalance.Add(req.Amount)
			params.YieldAccrued = vault.YieldAccrued
			before = vault.CurrentBalance
		}
		if req.Strategy != "" {
			params.Strategy = req.Strategy
		}
		if err := checkBalance(decimal.Max(params.TotalDeposited, params.CurrentBalance)); err != nil {
			return nil, err
		}
		params.Transaction = models.VaultTransaction{
			Type:          models.TxDeposit,
			Amount:        req.Amount,
			BalanceBefore: before,
			BalanceAfter:  params.CurrentBalance,
			ExternalRef:   req.ExternalRef,
			Status:        models.TxStatusConfirmed,
			CreatedAt:     s.now(),
		}

		transaction, err := s.store.ApplyVaultWrite(ctx, params)
		if err != nil {
			return nil, err
		}

		s.publish(ctx, events.New(events.VaultDeposited, req.UserId, map[string]string{
			"user_id":        req.UserId,
			"transaction_id": transaction.Id,
			"amount":         req.Amount.String(),
			"new_balance":    params.CurrentBalance.String(),
		}))
		s.mirrorTransaction(ctx, *transaction)

		return &models.DepositResult{
			TransactionId: transaction.Id,
			DepositAmount: req.Amount,
			NewBalance:    params.CurrentBalance,
			Strategy:      params.Strategy,
		}, nil
	})
}

// Withdraw debits the vault and records a pending withdrawal request that is
// settled or reversed later.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*models.WithdrawalResult, error) {
	if err := checkAmount(req.Amount, "Invalid withdrawal amount"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserId) == "" {
		return nil, errs.Validation("userId is required")
	}

	return retry(ctx, s, "withdraw", req.UserId, func(vault *models.Vault) (*models.WithdrawalResult, error) {
		if vault == nil {
			return nil, errs.NotFound("Vault not found")
		}
		if req.Amount.GreaterThan(vault.CurrentBalance) {
			return nil, errs.InsufficientBalance("Insufficient balance")
		}

		remaining := vault.CurrentBalance.Sub(req.Amount)
		transaction, err := s.store.ApplyVaultWrite(ctx, store.VaultWriteParams{
			VaultId:           vault.Id,
			UserId:            req.UserId,
			ExpectedVersion:   vault.Version,
			Strategy:          vault.Strategy,
			RebalanceSchedule: vault.RebalanceSchedule,
			TotalDeposited:    vault.TotalDeposited,
			CurrentBalance:    remaining,
			YieldAccrued:      vault.YieldAccrued,
			Transaction: models.VaultTransaction{
				Type:          models.TxWithdrawal,
				Amount:        req.Amount,
				BalanceBefore: vault.CurrentBalance,
				BalanceAfter:  remaining,
				ExternalRef:   req.ExternalRef,
				Status:        models.TxStatusPending,
				CreatedAt:     s.now(),
			},
		})
		if err != nil {
			return nil, err
		}

		s.publish(ctx, events.New(events.WithdrawalRequested, req.UserId, map[string]string{
			"user_id":        req.UserId,
			"transaction_id": transaction.Id,
			"amount":         req.Amount.String(),
			"remaining":      remaining.String(),
		}))
		s.mirrorTransaction(ctx, *transaction)

		return &models.WithdrawalResult{
			TransactionId:    transaction.Id,
			WithdrawnAmount:  req.Amount,
			RemainingBalance: remaining,
			Status:           transaction.Status,
			Note:             fmt.Sprintf("Withdrawal will be processed within %d business days", s.cfg.SettlementDays),
		}, nil
	})
}

// CreditDividend adds distributed yield to an existing vault
func (s *Service) CreditDividend(ctx context.Context, userId string, amount decimal.Decimal, ref string) (*models.VaultTransaction, error) {
	if err := checkAmount(amount, "Invalid dividend amount"); err != nil {
		return nil, err
	}

	return retry(ctx, s, "dividend", userId, func(vault *models.Vault) (*models.VaultTransaction, error) {
		if vault == nil {
			return nil, errs.NotFound("Vault not found")
		}
		balance := vault.CurrentBalance.Add(amount)
		if err := checkBalance(balance); err != nil {
			return nil, err
		}
		transaction, err := s.store.ApplyVaultWrite(ctx, store.VaultWriteParams{
			VaultId:           vault.Id,
			UserId:            userId,
			ExpectedVersion:   vault.Version,
			Strategy:          vault.Strategy,
			RebalanceSchedule: vault.RebalanceSchedule,
			TotalDeposited:    vault.TotalDeposited,
			CurrentBalance:    balance,
			YieldAccrued:      vault.YieldAccrued.Add(amount),
			EarnedDelta:       amount,
			Transaction: models.VaultTransaction{
				Type:          models.TxDividend,
				Amount:        amount,
				BalanceBefore: vault.CurrentBalance,
				BalanceAfter:  balance,
				ExternalRef:   ref,
				Status:        models.TxStatusConfirmed,
				CreatedAt:     s.now(),
			},
		})
		if err != nil {
			return nil, err
		}

		s.publish(ctx, events.New(events.DividendCredited, userId, map[string]string{
			"user_id":        userId,
			"transaction_id": transaction.Id,
			"amount":         amount.String(),
		}))
		s.mirrorTransaction(ctx, *transaction)
		return transaction, nil
	})
}

// retry runs op against a fresh vault snapshot until the write stops
// conflicting or the retry budget is spent.
func retry[T any](ctx context.Context, s *Service, operation, userId string, op func(vault *models.Vault) (*T, error)) (*T, error) {
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		vault, err := s.loadVault(ctx, userId)
		if err != nil {
			return nil, err
		}

		result, err := op(vault)
		if errors.Is(err, store.ErrConcurrentModification) {
			zap.L().Info("Vault changed underneath write, retrying",
				zap.String("operation", operation),
				zap.String("user_id", userId),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			var appErr *errs.Error
			if errors.As(err, &appErr) {
				return nil, err
			}
			return nil, errs.Internal(fmt.Errorf("%s failed: %w", operation, err))
		}
		return result, nil
	}

	zap.L().Warn("Vault retries exhausted",
		zap.String("operation", operation),
		zap.String("user_id", userId),
		zap.Int("max_retries", s.cfg.MaxRetries))
	return nil, errs.Conflict("Vault for user %s is being modified concurrently, please retry", userId)
}
