package prime

import (
	"context"
	"errors"
	"testing"

	"assetbridge-nexus/internal/accounting"

	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransactions struct {
	transactions.TransactionsService
	requests []*transactions.CreateWalletWithdrawalRequest
	err      error
}

func (f *fakeTransactions) CreateWalletWithdrawal(_ context.Context, req *transactions.CreateWalletWithdrawalRequest) (*transactions.CreateWalletWithdrawalResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &transactions.CreateWalletWithdrawalResponse{ActivityId: "activity-" + req.IdempotencyKey}, nil
}

func TestSplitAsset(t *testing.T) {
	symbol, network := splitAsset("USDC")
	assert.Equal(t, "USDC", symbol)
	assert.Nil(t, network)

	symbol, network = splitAsset("USDC-base-mainnet")
	assert.Equal(t, "USDC", symbol)
	require.NotNil(t, network)
	assert.Equal(t, "base", network.Id)
	assert.Equal(t, "mainnet", network.Type)
}

func TestSendPayout(t *testing.T) {
	fake := &fakeTransactions{}
	s := &Service{transactionsSvc: fake, portfolioId: "portfolio-1", walletId: "wallet-1", asset: "USDC-ethereum-mainnet"}

	ref, err := s.SendPayout(context.Background(), accounting.PayoutRequest{
		TransactionId:      "tx-1",
		UserId:             "user-1",
		DestinationAddress: "0xabc",
		Amount:             decimal.RequireFromString("125.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "activity-tx-1", ref)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, "portfolio-1", req.PortfolioId)
	assert.Equal(t, "wallet-1", req.SourceWalletId)
	assert.Equal(t, "125.50", req.Amount)
	assert.Equal(t, "tx-1", req.IdempotencyKey)
	assert.Equal(t, "USDC", req.Symbol)
	assert.Equal(t, "DESTINATION_BLOCKCHAIN", req.DestinationType)
	require.NotNil(t, req.BlockchainAddress)
	assert.Equal(t, "0xabc", req.BlockchainAddress.Address)
	require.NotNil(t, req.BlockchainAddress.Network)
	assert.Equal(t, "ethereum", req.BlockchainAddress.Network.Id)
}

func TestSendPayoutError(t *testing.T) {
	fake := &fakeTransactions{err: errors.New("rejected")}
	s := &Service{transactionsSvc: fake, portfolioId: "p", walletId: "w", asset: "USDC"}

	_, err := s.SendPayout(context.Background(), accounting.PayoutRequest{TransactionId: "tx-2", Amount: decimal.NewFromInt(1)})
	assert.ErrorContains(t, err, "unable to create withdrawal")
}
