package formance

import (
	"context"
	"fmt"
	"math/big"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VaultBalance returns the mirrored balance of a user's vault account.
func (s *Service) VaultBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	return s.accountBalance(ctx, vaultAccount(userId))
}

// EscrowBalance returns the mirrored capital raised by a deal.
func (s *Service) EscrowBalance(ctx context.Context, dealId string) (decimal.Decimal, error) {
	return s.accountBalance(ctx, escrowAccount(dealId))
}

func (s *Service) accountBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	zap.L().Debug("Getting mirrored balance", zap.String("address", address))

	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return bigIntToDecimal(volumeBalance(resp.V2AccountResponse.Data.Volumes, usdAsset)), nil
}

func vaultAccount(userId string) string  { return "users:" + userId + ":vault" }
func escrowAccount(dealId string) string { return "deals:" + dealId + ":escrow" }

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in cents to dollars.
func bigIntToDecimal(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -usdPrecision)
}
