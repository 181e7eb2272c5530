package prime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assetbridge-nexus/internal/accounting"
	"assetbridge-nexus/internal/httpclient"
	"assetbridge-nexus/internal/models"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/portfolios"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/coinbase-samples/prime-sdk-go/wallets"
	"go.uber.org/zap"
)

const (
	defaultPortfolioName = "Default Portfolio"
	defaultAsset         = "USDC"
)

// Compile-time check: *Service pays out settled vault withdrawals.
var _ accounting.Payout = (*Service)(nil)

// Service sends vault withdrawals to user wallets from a Coinbase Prime
// wallet.
type Service struct {
	portfoliosSvc   portfolios.PortfoliosService
	walletsSvc      wallets.WalletsService
	transactionsSvc transactions.TransactionsService
	portfolioId     string
	walletId        string
	asset           string
}

// NewService connects to Prime and resolves the source portfolio and wallet
// when they are not configured explicitly.
func NewService(ctx context.Context, cfg models.PrimeConfig) (*Service, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing required Prime API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}

	httpClient, err := httpclient.New(60 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	restClient := client.NewRestClient(&credentials.Credentials{
		AccessKey:  cfg.AccessKey,
		Passphrase: cfg.Passphrase,
		SigningKey: cfg.SigningKey,
	}, *httpClient)

	s := &Service{
		portfoliosSvc:   portfolios.NewPortfoliosService(restClient),
		walletsSvc:      wallets.NewWalletsService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
		portfolioId:     cfg.PortfolioId,
		walletId:        cfg.WalletId,
		asset:           cfg.Asset,
	}
	if s.asset == "" {
		s.asset = defaultAsset
	}

	if s.portfolioId == "" {
		zap.L().Info("Finding default portfolio")
		if s.portfolioId, err = s.findDefaultPortfolio(ctx); err != nil {
			return nil, err
		}
	}
	if s.walletId == "" {
		if s.walletId, err = s.findPayoutWallet(ctx); err != nil {
			return nil, err
		}
	}

	zap.L().Info("Prime payout service initialized",
		zap.String("portfolio_id", s.portfolioId),
		zap.String("wallet_id", s.walletId),
		zap.String("asset", s.asset))
	return s, nil
}

func (s *Service) findDefaultPortfolio(ctx context.Context) (string, error) {
	response, err := s.portfoliosSvc.ListPortfolios(ctx, &portfolios.ListPortfoliosRequest{})
	if err != nil {
		return "", fmt.Errorf("unable to list portfolios: %w", err)
	}

	for _, p := range response.Portfolios {
		if p.Name == defaultPortfolioName {
			return p.Id, nil
		}
	}
	return "", fmt.Errorf("default portfolio not found")
}

// findPayoutWallet picks the first trading wallet holding the payout asset
func (s *Service) findPayoutWallet(ctx context.Context) (string, error) {
	symbol, _ := splitAsset(s.asset)
	response, err := s.walletsSvc.ListWallets(ctx, &wallets.ListWalletsRequest{
		PortfolioId: s.portfolioId,
		Type:        "TRADING",
		Symbols:     []string{symbol},
	})
	if err != nil {
		return "", fmt.Errorf("unable to list wallets: %w", err)
	}
	if len(response.Wallets) == 0 {
		return "", fmt.Errorf("no %s trading wallet found in portfolio %s", symbol, s.portfolioId)
	}
	return response.Wallets[0].Id, nil
}

// SendPayout creates a Prime withdrawal to the user's wallet. The vault
// transaction id is the idempotency key so a retried settlement run never
// pays twice.
func (s *Service) SendPayout(ctx context.Context, req accounting.PayoutRequest) (string, error) {
	request := s.withdrawalRequest(req)

	zap.L().Info("Creating withdrawal via Prime API",
		zap.String("portfolio_id", request.PortfolioId),
		zap.String("wallet_id", request.SourceWalletId),
		zap.String("transaction_id", req.TransactionId),
		zap.String("amount", request.Amount),
		zap.String("destination", req.DestinationAddress))

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Failed to create withdrawal",
			zap.String("transaction_id", req.TransactionId),
			zap.String("amount", request.Amount),
			zap.Error(err))
		return "", fmt.Errorf("unable to create withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal created successfully",
		zap.String("activity_id", response.ActivityId),
		zap.String("transaction_id", req.TransactionId))
	return response.ActivityId, nil
}

func (s *Service) withdrawalRequest(req accounting.PayoutRequest) *transactions.CreateWalletWithdrawalRequest {
	symbol, network := splitAsset(s.asset)

	blockchainAddr := &model.BlockchainAddress{
		Address: req.DestinationAddress,
	}
	if network != nil {
		blockchainAddr.Network = network
	}

	return &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       s.portfolioId,
		SourceWalletId:    s.walletId,
		Amount:            req.Amount.StringFixed(2),
		IdempotencyKey:    req.TransactionId,
		Symbol:            symbol,
		DestinationType:   "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: blockchainAddr,
	}
}

// splitAsset parses "USDC-base-mainnet" into the symbol and network.
// A bare symbol leaves the network to Prime's default.
func splitAsset(asset string) (string, *model.NetworkDetails) {
	parts := strings.Split(asset, "-")
	if len(parts) >= 3 {
		return parts[0], &model.NetworkDetails{Id: parts[1], Type: parts[2]}
	}
	return parts[0], nil
}
