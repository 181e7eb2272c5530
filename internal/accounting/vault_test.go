package accounting

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositThenOverdraw(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()

	_, err := f.service.GetVault(ctx, "U")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	deposit, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("250")})
	require.NoError(t, err)
	assert.True(t, deposit.DepositAmount.Equal(dec("250")))
	assert.True(t, deposit.NewBalance.Equal(dec("250")))
	assert.Equal(t, models.StrategyBalanced, deposit.Strategy)

	_, err = f.service.Withdraw(ctx, WithdrawRequest{UserId: "U", Amount: dec("300")})
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientBalance, errs.KindOf(err))
	assert.Equal(t, "Insufficient balance", errs.MessageOf(err))

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, vault.TotalDeposited.Equal(dec("250")))
	assert.True(t, vault.CurrentBalance.Equal(dec("250")))
	require.Len(t, vault.Transactions, 1)
	assert.Equal(t, models.TxDeposit, vault.Transactions[0].Type)
	assert.Equal(t, models.TxStatusConfirmed, vault.Transactions[0].Status)
}

func TestDepositValidation(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()

	_, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: decimal.Zero})
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))
	assert.Equal(t, "Invalid deposit amount", errs.MessageOf(err))

	_, err = f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("10"), Strategy: "yolo"})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.service.Deposit(ctx, DepositRequest{Amount: dec("10")})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.service.GetVault(ctx, "U")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestDepositOverwritesStrategy(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()

	first, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("100"), Strategy: models.StrategyConservative})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyConservative, first.Strategy)

	second, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("50.25")})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyConservative, second.Strategy)
	assert.True(t, second.NewBalance.Equal(dec("150.25")))

	third, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("1"), Strategy: models.StrategyAggressive})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyAggressive, third.Strategy)

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.Equal(t, models.StrategyAggressive, vault.Strategy)
	assert.True(t, vault.TotalDeposited.Equal(dec("151.25")))
	require.Len(t, vault.Transactions, 3)
	assert.True(t, vault.Transactions[1].BalanceBefore.Equal(dec("100")))
	assert.True(t, vault.Transactions[1].BalanceAfter.Equal(dec("150.25")))
}

func TestWithdrawCreatesPendingRequest(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{SettlementDays: 3})
	ctx := context.Background()

	_, err := f.service.Withdraw(ctx, WithdrawRequest{UserId: "U", Amount: dec("10")})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Equal(t, "Vault not found", errs.MessageOf(err))

	_, err = f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("100")})
	require.NoError(t, err)

	_, err = f.service.Withdraw(ctx, WithdrawRequest{UserId: "U", Amount: dec("-1")})
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))

	result, err := f.service.Withdraw(ctx, WithdrawRequest{UserId: "U", Amount: dec("100"), ExternalRef: "0xdef"})
	require.NoError(t, err)
	assert.True(t, result.RemainingBalance.IsZero())
	assert.Equal(t, models.TxStatusPending, result.Status)
	assert.Equal(t, "Withdrawal will be processed within 3 business days", result.Note)

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.IsZero())
	assert.True(t, vault.TotalDeposited.Equal(dec("100")))
	require.Len(t, vault.Transactions, 2)
	assert.Equal(t, "0xdef", vault.Transactions[1].ExternalRef)

	assert.Equal(t, []string{events.VaultDeposited, events.WithdrawalRequested}, f.publisher.types())
	assert.Len(t, f.mirror.transactions, 2)
}

func TestVaultRandomSequenceKeepsBalance(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	expected := decimal.Zero
	appended := 0
	for i := 0; i < 80; i++ {
		amount := decimal.New(int64(rng.Intn(50000)+1), -2)
		if rng.Intn(2) == 0 {
			_, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: amount})
			require.NoError(t, err)
			expected = expected.Add(amount)
			appended++
			continue
		}
		_, err := f.service.Withdraw(ctx, WithdrawRequest{UserId: "U", Amount: amount})
		if amount.GreaterThan(expected) {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		expected = expected.Sub(amount)
		appended++
	}

	vault, err := f.service.GetVault(ctx, "U")
	if appended == 0 {
		require.Error(t, err)
		return
	}
	require.NoError(t, err)
	assert.False(t, vault.CurrentBalance.IsNegative())
	assert.True(t, vault.CurrentBalance.Equal(expected), "balance %s expected %s", vault.CurrentBalance, expected)
	assert.Len(t, vault.Transactions, appended)

	result, err := f.service.ReconcileVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, result.Balanced)
}

func TestConcurrentFirstDepositsCreateOneVault(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{MaxRetries: 100})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("10"), ExternalRef: fmt.Sprintf("ref-%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.Equal(dec("100")))
	assert.Len(t, vault.Transactions, 10)

	vaults, err := f.store.ListVaults(ctx)
	require.NoError(t, err)
	assert.Len(t, vaults, 1)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{MaxRetries: 100})
	ctx := context.Background()
	_, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("100")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Withdraw(ctx, WithdrawRequest{UserId: "U", Amount: dec("30")})
			if err != nil {
				assert.Contains(t, []errs.Kind{errs.KindInsufficientBalance, errs.KindConflict}, errs.KindOf(err))
			}
		}()
	}
	wg.Wait()

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.Equal(dec("10")))
	assert.Len(t, vault.Transactions, 4)
}

func TestYields(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()

	_, err := f.service.Yields(ctx, "U")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	_, err = f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("2500")})
	require.NoError(t, err)

	estimate, err := f.service.Yields(ctx, "U")
	require.NoError(t, err)
	assert.True(t, estimate.EstimatedMonthlyYield.Equal(dec("20")))
	assert.True(t, estimate.EstimatedAnnualYield.Equal(dec("240")))
}

func TestCreditDividend(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()
	f.user(t, "U", "")

	_, err := f.service.CreditDividend(ctx, "U", dec("5"), "q2")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	_, err = f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("100")})
	require.NoError(t, err)

	transaction, err := f.service.CreditDividend(ctx, "U", dec("5.5"), "q2")
	require.NoError(t, err)
	assert.Equal(t, models.TxDividend, transaction.Type)

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.Equal(dec("105.5")))
	assert.True(t, vault.YieldAccrued.Equal(dec("5.5")))
	assert.True(t, vault.TotalDeposited.Equal(dec("100")))

	user, err := f.store.GetUserById(ctx, "U")
	require.NoError(t, err)
	assert.True(t, user.TotalEarned.Equal(dec("5.5")))

	_, err = f.service.CreditDividend(ctx, "U", decimal.Zero, "")
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))
}

func TestAmountsMustBeWholeCents(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()
	f.user(t, "u1", "")
	f.deal(t, "d1", models.DealOpen, 1, 1000, 0)

	_, err := f.service.Deposit(ctx, DepositRequest{UserId: "u1", Amount: dec("1234567890.12345678")})
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))
	assert.Equal(t, "Amount cannot have more than 2 decimal places", errs.MessageOf(err))

	_, err = f.service.Deposit(ctx, DepositRequest{UserId: "u1", Amount: dec("10000000000000")})
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))

	deposit, err := f.service.Deposit(ctx, DepositRequest{UserId: "u1", Amount: dec("1234567890.12")})
	require.NoError(t, err)
	vault, err := f.service.GetVault(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.Equal(deposit.NewBalance), "stored %s, reported %s", vault.CurrentBalance, deposit.NewBalance)

	_, err = f.service.Withdraw(ctx, WithdrawRequest{UserId: "u1", Amount: dec("10.005")})
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))

	_, err = f.service.CreditDividend(ctx, "u1", dec("0.001"), "")
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))

	withdrawal, err := f.service.Withdraw(ctx, WithdrawRequest{UserId: "u1", Amount: deposit.NewBalance})
	require.NoError(t, err)
	assert.True(t, withdrawal.RemainingBalance.IsZero())

	_, err = f.service.Invest(ctx, InvestRequest{DealId: "d1", UserId: "u1", Amount: dec("999.9999999999999999")})
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))
	deal, err := f.service.GetDeal(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, deal.CurrentRaised.IsZero())
	assert.Equal(t, models.DealOpen, deal.Status)
	assert.Empty(t, deal.Positions)

	result, err := f.service.Invest(ctx, InvestRequest{DealId: "d1", UserId: "u1", Amount: dec("1000")})
	require.NoError(t, err)
	assert.Equal(t, models.DealClosed, result.DealStatus)
}

func TestDepositCannotPushBalancePastMaximum(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()

	_, err := f.service.Deposit(ctx, DepositRequest{UserId: "u1", Amount: models.MaxMoney})
	require.NoError(t, err)

	_, err = f.service.Deposit(ctx, DepositRequest{UserId: "u1", Amount: dec("0.01")})
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))

	_, err = f.service.CreditDividend(ctx, "u1", dec("0.01"), "")
	assert.Equal(t, errs.KindInvalidAmount, errs.KindOf(err))

	vault, err := f.service.GetVault(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.Equal(models.MaxMoney))
	assert.Len(t, vault.Transactions, 1)
}
