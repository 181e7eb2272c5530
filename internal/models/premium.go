package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionResult is returned by subscribe and confirm-payment. When the
// payment still needs client-side confirmation only the intent fields are set.
type SubscriptionResult struct {
	UserId          string     `json:"userId,omitempty"`
	Plan            string     `json:"plan"`
	BillingCycle    string     `json:"billingCycle"`
	Amount          string     `json:"amount"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	IsActive        bool       `json:"isActive"`
	ClientSecret    string     `json:"clientSecret,omitempty"`
	PaymentIntentId string     `json:"paymentIntentId,omitempty"`
}

// PremiumStatus is a user's subscription as shown to clients
type PremiumStatus struct {
	UserId              string       `json:"userId"`
	IsPremium           bool         `json:"isPremium"`
	CurrentPlan         string       `json:"currentPlan"`
	SubscriptionDetails Subscription `json:"subscriptionDetails"`
	StatusMessage       string       `json:"statusMessage"`
}

type PortfolioRisk struct {
	Score          int    `json:"score"`
	Level          string `json:"level"`
	Recommendation string `json:"recommendation"`
}

type YieldPrediction struct {
	NextMonthYield     decimal.Decimal `json:"nextMonthYield"`
	ConfidenceScore    decimal.Decimal `json:"confidenceScore"`
	RiskAdjustedReturn string          `json:"riskAdjustedReturn"`
}

// PortfolioAnalytics is the premium risk and yield report for one user
type PortfolioAnalytics struct {
	PortfolioRisk   PortfolioRisk   `json:"portfolioRisk"`
	Predictions     YieldPrediction `json:"predictions"`
	Recommendations []string        `json:"recommendations"`
}
