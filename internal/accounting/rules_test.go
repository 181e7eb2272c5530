package accounting

import (
	"testing"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInvestment(t *testing.T) {
	deal := &models.Deal{
		Status:        models.DealOpen,
		MinInvestment: dec("500"),
		TargetAmount:  dec("10000"),
		CurrentRaised: dec("9000"),
	}

	raised, status, err := checkInvestment(deal, dec("500"))
	require.NoError(t, err)
	assert.True(t, raised.Equal(dec("9500")))
	assert.Equal(t, models.DealOpen, status)

	raised, status, err = checkInvestment(deal, dec("1000"))
	require.NoError(t, err)
	assert.True(t, raised.Equal(dec("10000")))
	assert.Equal(t, models.DealClosed, status)

	_, _, err = checkInvestment(deal, dec("1000.01"))
	assert.Equal(t, errs.KindExceedsTarget, errs.KindOf(err))

	_, _, err = checkInvestment(deal, dec("499"))
	assert.Equal(t, errs.KindBelowMinimum, errs.KindOf(err))

	deal.Status = models.DealComing
	_, _, err = checkInvestment(deal, dec("500"))
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
	assert.Equal(t, "Cannot invest in coming deal", errs.MessageOf(err))
}

func TestEstimateYield(t *testing.T) {
	vault := &models.Vault{
		TotalDeposited: dec("1500"),
		CurrentBalance: dec("1000"),
		YieldAccrued:   dec("12.34"),
		Strategy:       models.StrategyBalanced,
	}

	estimate := EstimateYield(vault, dec("0.008"))
	assert.True(t, estimate.EstimatedMonthlyYield.Equal(dec("8")))
	assert.True(t, estimate.EstimatedAnnualYield.Equal(dec("96")))
	assert.Equal(t, "10.0%", estimate.EstimatedAPY)
	assert.True(t, estimate.CurrentBalance.Equal(dec("1000")))
	assert.Equal(t, models.StrategyBalanced, estimate.Strategy)

	odd := EstimateYield(&models.Vault{CurrentBalance: dec("123.45")}, dec("0.008"))
	assert.True(t, odd.EstimatedMonthlyYield.Equal(dec("0.99")))
	assert.True(t, odd.EstimatedAnnualYield.Equal(dec("11.85")))
}
