/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentResult represents the result of a successful investment
type InvestmentResult struct {
	DealId          string          `json:"dealId"`
	DealTitle       string          `json:"dealTitle"`
	InvestedAmount  decimal.Decimal `json:"investedAmount"`
	Apy             decimal.Decimal `json:"apy"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	PositionId      string          `json:"positionId"`
	CurrentRaised   decimal.Decimal `json:"currentRaised"`
	DealStatus      string          `json:"dealStatus"`
}

// InvestmentSummary lists a user's positions with aggregate totals
type InvestmentSummary struct {
	Investments   []UserInvestment `json:"investments"`
	Count         int              `json:"count"`
	TotalInvested decimal.Decimal  `json:"totalInvested"`
	TotalEarnings decimal.Decimal  `json:"totalEarnings"`
}

// DepositResult represents the result of a vault deposit
type DepositResult struct {
	TransactionId string          `json:"transactionId"`
	DepositAmount decimal.Decimal `json:"depositAmount"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	Strategy      string          `json:"strategy"`
}

// WithdrawalResult represents the result of a withdrawal request
type WithdrawalResult struct {
	TransactionId    string          `json:"transactionId"`
	WithdrawnAmount  decimal.Decimal `json:"withdrawnAmount"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	Status           string          `json:"status"`
	Note             string          `json:"note"`
}

// YieldEstimate is the projected yield for a vault
type YieldEstimate struct {
	TotalDeposited        decimal.Decimal `json:"totalDeposited"`
	CurrentBalance        decimal.Decimal `json:"currentBalance"`
	YieldAccrued          decimal.Decimal `json:"yieldAccrued"`
	Strategy              string          `json:"strategy"`
	EstimatedMonthlyYield decimal.Decimal `json:"estimatedMonthlyYield"`
	EstimatedAnnualYield  decimal.Decimal `json:"estimatedAnnualYield"`
	EstimatedAPY          string          `json:"estimatedAPY"`
	LastRebalance         *time.Time      `json:"lastRebalance,omitempty"`
}

// SettlementReport summarises a pending-withdrawal settlement run
type SettlementReport struct {
	Settled  []string `json:"settled"`
	Reversed []string `json:"reversed"`
	Skipped  []string `json:"skipped"`
}

// ReconcileResult is the outcome of checking one aggregate against its history
type ReconcileResult struct {
	Kind       string          `json:"kind"` // "vault" or "deal"
	Id         string          `json:"id"`
	Stored     decimal.Decimal `json:"stored"`
	Calculated decimal.Decimal `json:"calculated"`
	Balanced   bool            `json:"balanced"`
}

// KYCStatus is a user's identity-verification state as shown to clients
type KYCStatus struct {
	UserId        string    `json:"userId"`
	KycStatus     string    `json:"kycStatus"`
	IsVerified    bool      `json:"isVerified"`
	LastUpdated   time.Time `json:"lastUpdated"`
	StatusDetails string    `json:"statusDetails"`
}

// KYCInitiation is returned when a verification inquiry has been opened
type KYCInitiation struct {
	UserId         string `json:"userId"`
	Status         string `json:"status"`
	VerificationId string `json:"verificationId"`
	InquiryId      string `json:"inquiryId"`
	RedirectURL    string `json:"redirectUrl"`
	NextSteps      string `json:"nextSteps"`
	EstimatedTime  string `json:"estimatedTime"`
}

// WebhookOutcome describes how a provider callback was applied
type WebhookOutcome struct {
	InquiryId string `json:"inquiryId"`
	NewStatus string `json:"newStatus"`
	UserId    string `json:"userId,omitempty"`
	Applied   bool   `json:"applied"`
}
