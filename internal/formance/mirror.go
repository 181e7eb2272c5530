package formance

import (
	"context"
	"fmt"
	"time"

	"assetbridge-nexus/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ledgerPosting is one Numscript execution with its idempotency reference
type ledgerPosting struct {
	reference string
	script    string
	vars      map[string]string
	timestamp time.Time
}

// MirrorInvestment moves the invested amount into the deal escrow account.
func (s *Service) MirrorInvestment(ctx context.Context, deal models.Deal, position models.Position) error {
	return s.post(ctx, investmentPosting(deal, position))
}

// MirrorVaultTransaction records a vault movement. Rebalances move no money
// and are not mirrored.
func (s *Service) MirrorVaultTransaction(ctx context.Context, transaction models.VaultTransaction) error {
	posting, ok := vaultPosting(transaction)
	if !ok {
		zap.L().Debug("Vault transaction has no ledger effect",
			zap.String("transaction_id", transaction.Id),
			zap.String("type", transaction.Type),
			zap.String("status", transaction.Status))
		return nil
	}
	return s.post(ctx, posting)
}

func (s *Service) post(ctx context.Context, posting ledgerPosting) error {
	postTx := shared.V2PostTransaction{
		Reference: strPtr(posting.reference),
		Script: &shared.V2PostTransactionScript{
			Plain: posting.script,
			Vars:  posting.vars,
		},
	}
	if !posting.timestamp.IsZero() {
		postTx.Timestamp = &posting.timestamp
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Ledger transaction already mirrored", zap.String("reference", posting.reference))
			return nil
		}
		return fmt.Errorf("failed to post ledger transaction %s: %w", posting.reference, err)
	}

	zap.L().Debug("Ledger transaction mirrored", zap.String("reference", posting.reference))
	return nil
}

func investmentPosting(deal models.Deal, position models.Position) ledgerPosting {
	return ledgerPosting{
		reference: "position:" + position.Id,
		script:    numscriptInvestment,
		vars: map[string]string{
			"asset":        usdAsset,
			"amount":       minorUnits(position.Amount),
			"user_id":      position.UserId,
			"deal_id":      deal.Id,
			"position_id":  position.Id,
			"amount_human": position.Amount.String(),
		},
		timestamp: position.InvestmentDate,
	}
}

// vaultPosting maps a vault transaction to its ledger posting. A withdrawal
// is posted twice over its life: once when requested and once when settled,
// each with its own reference.
func vaultPosting(transaction models.VaultTransaction) (ledgerPosting, bool) {
	vars := map[string]string{
		"asset":          usdAsset,
		"amount":         minorUnits(transaction.Amount),
		"user_id":        transaction.UserId,
		"transaction_id": transaction.Id,
		"amount_human":   transaction.Amount.String(),
	}
	posting := ledgerPosting{
		reference: "vault:" + transaction.Id,
		vars:      vars,
		timestamp: transaction.CreatedAt,
	}

	switch transaction.Type {
	case models.TxDeposit:
		posting.script = numscriptVaultDeposit
	case models.TxDividend:
		posting.script = numscriptDividend
	case models.TxReversal:
		posting.script = numscriptWithdrawalReversed
		vars["reverses"] = transaction.SettlementRef
	case models.TxWithdrawal:
		switch transaction.Status {
		case models.TxStatusPending:
			posting.script = numscriptWithdrawalRequested
		case models.TxStatusSettled:
			posting.script = numscriptWithdrawalSettled
			posting.reference = "vault:" + transaction.Id + ":settled"
			vars["settlement_ref"] = transaction.SettlementRef
			if transaction.SettledAt != nil {
				posting.timestamp = *transaction.SettledAt
			}
		default:
			return ledgerPosting{}, false
		}
	default:
		return ledgerPosting{}, false
	}
	return posting, true
}

// minorUnits converts a dollar amount to integer cents, the smallest unit of USD/2.
func minorUnits(amount decimal.Decimal) string {
	return amount.Shift(usdPrecision).BigInt().String()
}
