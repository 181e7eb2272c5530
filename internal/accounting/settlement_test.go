package accounting

import (
	"context"
	"errors"
	"testing"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayout struct {
	fail     map[string]bool
	requests []PayoutRequest
}

func (p *fakePayout) SendPayout(_ context.Context, req PayoutRequest) (string, error) {
	p.requests = append(p.requests, req)
	if p.fail[req.UserId] {
		return "", errors.New("wallet rejected transfer")
	}
	return "payout-" + req.TransactionId, nil
}

func (f *fixture) pendingWithdrawal(t *testing.T, userId, deposit, withdraw string) string {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.Deposit(ctx, DepositRequest{UserId: userId, Amount: dec(deposit)})
	require.NoError(t, err)
	result, err := f.service.Withdraw(ctx, WithdrawRequest{UserId: userId, Amount: dec(withdraw)})
	require.NoError(t, err)
	return result.TransactionId
}

func TestSettleWithdrawal(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()
	txId := f.pendingWithdrawal(t, "U", "100", "40")

	settled, err := f.service.SettleWithdrawal(ctx, txId, "prime-123")
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusSettled, settled.Status)
	assert.Equal(t, "prime-123", settled.SettlementRef)
	require.NotNil(t, settled.SettledAt)

	_, err = f.service.SettleWithdrawal(ctx, txId, "again")
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))

	_, err = f.service.ReverseWithdrawal(ctx, txId, "too late")
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))

	_, err = f.service.SettleWithdrawal(ctx, "missing", "x")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.Equal(dec("60")))
	assert.Contains(t, f.publisher.types(), events.WithdrawalSettled)
}

func TestSettleRejectsDeposits(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()

	deposit, err := f.service.Deposit(ctx, DepositRequest{UserId: "U", Amount: dec("10")})
	require.NoError(t, err)

	_, err = f.service.SettleWithdrawal(ctx, deposit.TransactionId, "x")
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
}

func TestReverseWithdrawalRestoresBalance(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{})
	ctx := context.Background()
	txId := f.pendingWithdrawal(t, "U", "100", "40")

	reversal, err := f.service.ReverseWithdrawal(ctx, txId, "bank returned funds")
	require.NoError(t, err)
	assert.Equal(t, models.TxReversal, reversal.Type)
	assert.True(t, reversal.BalanceBefore.Equal(dec("60")))
	assert.True(t, reversal.BalanceAfter.Equal(dec("100")))

	vault, err := f.service.GetVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, vault.CurrentBalance.Equal(dec("100")))
	require.Len(t, vault.Transactions, 3)
	assert.Equal(t, models.TxStatusReversed, vault.Transactions[1].Status)
	assert.Equal(t, reversal.Id, vault.Transactions[1].SettlementRef)

	_, err = f.service.ReverseWithdrawal(ctx, txId, "twice")
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))

	result, err := f.service.ReconcileVault(ctx, "U")
	require.NoError(t, err)
	assert.True(t, result.Balanced)
}

func TestSettlePending(t *testing.T) {
	f := newFixture(t, models.AccountingConfig{SettlementBatchMax: 10})
	ctx := context.Background()
	f.user(t, "good", "0xgood")
	f.user(t, "bad", "0xbad")
	f.user(t, "nowallet", "")

	good := f.pendingWithdrawal(t, "good", "100", "25")
	bad := f.pendingWithdrawal(t, "bad", "100", "50")
	skipped := f.pendingWithdrawal(t, "nowallet", "100", "75")

	payout := &fakePayout{fail: map[string]bool{"bad": true}}
	report, err := f.service.SettlePending(ctx, payout, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{good}, report.Settled)
	assert.Equal(t, []string{bad}, report.Reversed)
	assert.Equal(t, []string{skipped}, report.Skipped)

	require.Len(t, payout.requests, 2)
	assert.Equal(t, "0xgood", payout.requests[0].DestinationAddress)
	assert.True(t, payout.requests[0].Amount.Equal(dec("25")))

	badVault, err := f.service.GetVault(ctx, "bad")
	require.NoError(t, err)
	assert.True(t, badVault.CurrentBalance.Equal(dec("100")))

	pending, err := f.service.ListPendingWithdrawals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, skipped, pending[0].Id)

	_, err = f.service.SettlePending(ctx, nil, 0)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}
