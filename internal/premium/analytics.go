package premium

import (
	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
)

var riskWeights = map[string]int64{
	"low":    20,
	"medium": 50,
	"high":   80,
}

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Analyze scores a portfolio of deal positions plus an optional vault.
// Risk is the amount-weighted rating of the positions, the vault counting
// as low risk; the yield projection uses each deal's APY and the vault rate.
func Analyze(investments []models.UserInvestment, vault *models.Vault, monthlyRate decimal.Decimal) models.PortfolioAnalytics {
	total := decimal.Zero
	weighted := decimal.Zero
	monthly := decimal.Zero
	apyWeighted := decimal.Zero
	classes := map[string]bool{}
	highRisk := decimal.Zero

	for _, inv := range investments {
		weight, ok := riskWeights[inv.RiskRating]
		if !ok {
			weight = riskWeights["medium"]
		}
		total = total.Add(inv.Amount)
		weighted = weighted.Add(inv.Amount.Mul(decimal.NewFromInt(weight)))
		monthly = monthly.Add(inv.Amount.Mul(inv.Apy).Div(hundred).Div(twelve))
		apyWeighted = apyWeighted.Add(inv.Amount.Mul(inv.Apy))
		classes[inv.AssetClass] = true
		if inv.RiskRating == "high" {
			highRisk = highRisk.Add(inv.Amount)
		}
	}

	hasVault := vault != nil && vault.CurrentBalance.IsPositive()
	if hasVault {
		total = total.Add(vault.CurrentBalance)
		weighted = weighted.Add(vault.CurrentBalance.Mul(decimal.NewFromInt(riskWeights["low"])))
		vaultMonthly := vault.CurrentBalance.Mul(monthlyRate)
		monthly = monthly.Add(vaultMonthly)
		apyWeighted = apyWeighted.Add(vault.CurrentBalance.Mul(monthlyRate).Mul(twelve).Mul(hundred))
	}

	result := models.PortfolioAnalytics{
		PortfolioRisk: models.PortfolioRisk{
			Level:          "None",
			Recommendation: "No holdings yet",
		},
		Predictions: models.YieldPrediction{
			NextMonthYield:     decimal.Zero,
			ConfidenceScore:    decimal.Zero,
			RiskAdjustedReturn: "0.0%",
		},
		Recommendations: []string{},
	}
	if total.IsZero() {
		result.Recommendations = append(result.Recommendations, "Open a vault or invest in an open deal to start earning")
		return result
	}

	score := int(weighted.Div(total).Round(0).IntPart())
	result.PortfolioRisk.Score = score
	switch {
	case score < 35:
		result.PortfolioRisk.Level = "Low"
		result.PortfolioRisk.Recommendation = "Your portfolio is conservatively positioned"
	case score < 65:
		result.PortfolioRisk.Level = "Medium"
		result.PortfolioRisk.Recommendation = "Your portfolio has balanced risk exposure"
	default:
		result.PortfolioRisk.Level = "High"
		result.PortfolioRisk.Recommendation = "Your portfolio is concentrated in higher risk deals"
	}

	blendedApy := apyWeighted.Div(total)
	riskAdjusted := blendedApy.Mul(decimal.NewFromInt(int64(200 - score))).Div(decimal.NewFromInt(200))
	// More positions and asset classes give a steadier projection
	confidence := decimal.NewFromFloat(0.5).
		Add(decimal.NewFromInt(int64(len(investments))).Mul(decimal.NewFromFloat(0.05))).
		Add(decimal.NewFromInt(int64(len(classes))).Mul(decimal.NewFromFloat(0.05)))
	if confidence.GreaterThan(decimal.NewFromFloat(0.95)) {
		confidence = decimal.NewFromFloat(0.95)
	}

	result.Predictions = models.YieldPrediction{
		NextMonthYield:     monthly.Round(2),
		ConfidenceScore:    confidence.Round(2),
		RiskAdjustedReturn: riskAdjusted.StringFixed(1) + "%",
	}

	if len(investments) > 0 && len(classes) < 2 {
		result.Recommendations = append(result.Recommendations, "Diversify across asset classes")
	}
	if highRisk.Mul(decimal.NewFromInt(2)).GreaterThan(total) {
		result.Recommendations = append(result.Recommendations, "Consider lower risk deals to reduce volatility")
	}
	if !hasVault {
		result.Recommendations = append(result.Recommendations, "Keep a vault balance for liquidity")
	}
	if len(result.Recommendations) == 0 {
		result.Recommendations = append(result.Recommendations, "Your allocation is well diversified")
	}
	return result
}
