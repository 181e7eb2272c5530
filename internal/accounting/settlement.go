package accounting

import (
	"context"
	"errors"
	"fmt"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"go.uber.org/zap"
)

func (s *Service) pendingWithdrawal(ctx context.Context, transactionId string) (*models.VaultTransaction, error) {
	transaction, err := s.store.GetVaultTransaction(ctx, transactionId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("Transaction %s not found", transactionId)
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	if transaction.Type != models.TxWithdrawal {
		return nil, errs.InvalidState("Transaction %s is a %s, not a withdrawal", transactionId, transaction.Type)
	}
	if transaction.Status != models.TxStatusPending {
		return nil, errs.InvalidState("Withdrawal %s is %s, not pending", transactionId, transaction.Status)
	}
	return transaction, nil
}

// ListPendingWithdrawals returns pending withdrawal requests, oldest first
func (s *Service) ListPendingWithdrawals(ctx context.Context, limit int) ([]models.VaultTransaction, error) {
	pending, err := s.store.ListPendingWithdrawals(ctx, limit)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return pending, nil
}

// SettleWithdrawal marks a pending withdrawal as paid out
func (s *Service) SettleWithdrawal(ctx context.Context, transactionId, payoutRef string) (*models.VaultTransaction, error) {
	transaction, err := s.pendingWithdrawal(ctx, transactionId)
	if err != nil {
		return nil, err
	}

	settledAt := s.now()
	err = s.store.UpdateTransactionStatus(ctx, store.TransactionStatusChange{
		TransactionId: transactionId,
		From:          models.TxStatusPending,
		To:            models.TxStatusSettled,
		SettlementRef: payoutRef,
		At:            settledAt,
	})
	if errors.Is(err, store.ErrConcurrentModification) {
		return nil, errs.InvalidState("Withdrawal %s is no longer pending", transactionId)
	}
	if err != nil {
		return nil, errs.Internal(err)
	}

	transaction.Status = models.TxStatusSettled
	transaction.SettlementRef = payoutRef
	transaction.SettledAt = &settledAt
	s.mirrorTransaction(ctx, *transaction)

	s.publish(ctx, events.New(events.WithdrawalSettled, transaction.UserId, map[string]string{
		"user_id":        transaction.UserId,
		"transaction_id": transaction.Id,
		"amount":         transaction.Amount.String(),
		"payout_ref":     payoutRef,
	}))
	return transaction, nil
}

// ReverseWithdrawal cancels a pending withdrawal and credits the amount back
// to the vault with a reversal transaction.
func (s *Service) ReverseWithdrawal(ctx context.Context, transactionId, reason string) (*models.VaultTransaction, error) {
	withdrawal, err := s.pendingWithdrawal(ctx, transactionId)
	if err != nil {
		return nil, err
	}

	reversal, err := retry(ctx, s, "reverse", withdrawal.UserId, func(vault *models.Vault) (*models.VaultTransaction, error) {
		if vault == nil {
			return nil, errs.NotFound("Vault not found")
		}
		current, err := s.store.GetVaultTransaction(ctx, transactionId)
		if err != nil {
			return nil, err
		}
		if current.Status != models.TxStatusPending {
			return nil, errs.InvalidState("Withdrawal %s is %s, not pending", transactionId, current.Status)
		}

		balance := vault.CurrentBalance.Add(withdrawal.Amount)
		return s.store.ApplyVaultWrite(ctx, store.VaultWriteParams{
			VaultId:           vault.Id,
			UserId:            vault.UserId,
			ExpectedVersion:   vault.Version,
			Strategy:          vault.Strategy,
			RebalanceSchedule: vault.RebalanceSchedule,
			TotalDeposited:    vault.TotalDeposited,
			CurrentBalance:    balance,
			YieldAccrued:      vault.YieldAccrued,
			Reverses:          transactionId,
			Transaction: models.VaultTransaction{
				Type:          models.TxReversal,
				Amount:        withdrawal.Amount,
				BalanceBefore: vault.CurrentBalance,
				BalanceAfter:  balance,
				ExternalRef:   reason,
				Status:        models.TxStatusConfirmed,
				SettlementRef: transactionId,
				CreatedAt:     s.now(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.WithdrawalReversed, withdrawal.UserId, map[string]string{
		"user_id":        withdrawal.UserId,
		"transaction_id": withdrawal.Id,
		"reversal_id":    reversal.Id,
		"amount":         withdrawal.Amount.String(),
		"reason":         reason,
	}))
	s.mirrorTransaction(ctx, *reversal)
	return reversal, nil
}

// SettlementOutcome is what happened to one pending withdrawal during a payout attempt
type SettlementOutcome string

const (
	OutcomeSettled  SettlementOutcome = "settled"
	OutcomeReversed SettlementOutcome = "reversed"
	OutcomeSkipped  SettlementOutcome = "skipped"
)

// SettlePending pays out up to limit pending withdrawals, oldest first.
// A failed payout reverses the withdrawal; a user without a payout address
// is skipped and stays pending.
func (s *Service) SettlePending(ctx context.Context, payout Payout, limit int) (*models.SettlementReport, error) {
	if payout == nil {
		return nil, errs.Validation("no payout provider configured")
	}
	if limit <= 0 {
		limit = s.cfg.SettlementBatchMax
	}

	pending, err := s.store.ListPendingWithdrawals(ctx, limit)
	if err != nil {
		return nil, errs.Internal(err)
	}

	report := &models.SettlementReport{Settled: []string{}, Reversed: []string{}, Skipped: []string{}}
	for _, withdrawal := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch s.PayoutWithdrawal(ctx, payout, withdrawal) {
		case OutcomeSettled:
			report.Settled = append(report.Settled, withdrawal.Id)
		case OutcomeReversed:
			report.Reversed = append(report.Reversed, withdrawal.Id)
		default:
			report.Skipped = append(report.Skipped, withdrawal.Id)
		}
	}

	zap.L().Info("Settlement run finished",
		zap.Int("settled", len(report.Settled)),
		zap.Int("reversed", len(report.Reversed)),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// PayoutWithdrawal sends one pending withdrawal to the payout provider and
// settles or reverses it depending on the result
func (s *Service) PayoutWithdrawal(ctx context.Context, payout Payout, withdrawal models.VaultTransaction) SettlementOutcome {
	user, err := s.store.GetUserById(ctx, withdrawal.UserId)
	if err != nil || user.WalletAddress == nil || *user.WalletAddress == "" {
		zap.L().Warn("Skipping withdrawal without payout address",
			zap.String("transaction_id", withdrawal.Id),
			zap.String("user_id", withdrawal.UserId))
		return OutcomeSkipped
	}

	payoutRef, err := payout.SendPayout(ctx, PayoutRequest{
		TransactionId:      withdrawal.Id,
		UserId:             withdrawal.UserId,
		DestinationAddress: *user.WalletAddress,
		Amount:             withdrawal.Amount,
	})
	if err != nil {
		zap.L().Error("Payout failed, reversing withdrawal",
			zap.String("transaction_id", withdrawal.Id),
			zap.Error(err))
		if _, revErr := s.ReverseWithdrawal(ctx, withdrawal.Id, fmt.Sprintf("payout failed: %v", err)); revErr != nil {
			zap.L().Error("Failed to reverse withdrawal",
				zap.String("transaction_id", withdrawal.Id),
				zap.Error(revErr))
			return OutcomeSkipped
		}
		return OutcomeReversed
	}

	if _, err := s.SettleWithdrawal(ctx, withdrawal.Id, payoutRef); err != nil {
		zap.L().Error("Payout sent but settlement failed",
			zap.String("transaction_id", withdrawal.Id),
			zap.String("payout_ref", payoutRef),
			zap.Error(err))
		return OutcomeSkipped
	}
	return OutcomeSettled
}
