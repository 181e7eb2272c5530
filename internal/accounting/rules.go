package accounting

import (
	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
)

// checkAmount rejects amounts that are not positive, carry fractions of a
// cent or exceed what the store holds exactly. invalid is the message for a
// non-positive amount.
func checkAmount(amount decimal.Decimal, invalid string) error {
	if !amount.IsPositive() {
		return errs.InvalidAmount("%s", invalid)
	}
	if !models.IsWholeCents(amount) {
		return errs.InvalidAmount("Amount cannot have more than %d decimal places", models.MoneyScale)
	}
	if amount.GreaterThan(models.MaxMoney) {
		return errs.InvalidAmount("Amount cannot exceed $%s", models.MaxMoney.String())
	}
	return nil
}

// checkBalance guards running totals that grow with each credit
func checkBalance(total decimal.Decimal) error {
	if total.GreaterThan(models.MaxMoney) {
		return errs.InvalidAmount("Resulting balance cannot exceed $%s", models.MaxMoney.String())
	}
	return nil
}

// checkInvestment applies the deal-side preconditions in order and returns the
// raised total and status the deal moves to.
func checkInvestment(deal *models.Deal, amount decimal.Decimal) (decimal.Decimal, string, error) {
	if deal.Status != models.DealOpen {
		return decimal.Zero, "", errs.InvalidState("Cannot invest in %s deal", deal.Status)
	}
	// Once less than the minimum is left, the remainder itself is the minimum,
	// so an amount below MinInvestment is accepted only when it closes the deal.
	minimum := decimal.Min(deal.MinInvestment, deal.Remaining())
	if amount.LessThan(minimum) {
		return decimal.Zero, "", errs.BelowMinimum("Minimum investment is $%s", minimum.String())
	}
	newRaised := deal.CurrentRaised.Add(amount)
	if newRaised.GreaterThan(deal.TargetAmount) {
		return decimal.Zero, "", errs.ExceedsTarget("Investment exceeds remaining funding target of $%s", deal.Remaining().String())
	}
	status := deal.Status
	if newRaised.GreaterThanOrEqual(deal.TargetAmount) {
		status = models.DealClosed
	}
	return newRaised, status, nil
}

func isStrategy(strategy string) bool {
	for _, s := range models.Strategies {
		if s == strategy {
			return true
		}
	}
	return false
}

// EstimateYield projects a vault's yield from its balance and a nominal
// monthly rate. It has no side effects.
func EstimateYield(vault *models.Vault, monthlyRate decimal.Decimal) models.YieldEstimate {
	monthly := vault.CurrentBalance.Mul(monthlyRate)
	annual := monthly.Mul(decimal.NewFromInt(12))
	apy := decimal.NewFromInt(1).Add(monthlyRate).Pow(decimal.NewFromInt(12)).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))

	return models.YieldEstimate{
		TotalDeposited:        vault.TotalDeposited,
		CurrentBalance:        vault.CurrentBalance,
		YieldAccrued:          vault.YieldAccrued,
		Strategy:              vault.Strategy,
		EstimatedMonthlyYield: monthly.Round(2),
		EstimatedAnnualYield:  annual.Round(2),
		EstimatedAPY:          apy.StringFixed(1) + "%",
		LastRebalance:         vault.LastRebalance,
	}
}
