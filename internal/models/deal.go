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

// Deal lifecycle statuses
const (
	DealDraft     = "draft"
	DealOpen      = "open"
	DealComing    = "coming"
	DealClosed    = "closed"
	DealCompleted = "completed"
)

// DealStatuses lists every valid deal status
var DealStatuses = []string{DealDraft, DealOpen, DealComing, DealClosed, DealCompleted}

// AssetClasses lists the supported underlying asset classes
var AssetClasses = []string{"credit", "real_estate", "agriculture", "renewable_energy", "other"}

// RiskRatings lists the supported deal risk ratings
var RiskRatings = []string{"low", "medium", "high"}

// Position is one investment made by a user into a deal. Positions are
// append-only; they are never edited or removed once recorded.
type Position struct {
	Id              string          `json:"id"`
	DealId          string          `json:"dealId"`
	UserId          string          `json:"userId"`
	Amount          decimal.Decimal `json:"amount"`
	InvestmentDate  time.Time       `json:"investmentDate"`
	EarningsAccrued decimal.Decimal `json:"earningsAccrued"`
	ExternalRef     string          `json:"transactionHash,omitempty"`
}

// Deal is a fundraising offering
type Deal struct {
	Id                       string          `json:"id"`
	Title                    string          `json:"title"`
	Description              string          `json:"description"`
	Apy                      decimal.Decimal `json:"apy"`
	TermMonths               int             `json:"term"`
	MinInvestment            decimal.Decimal `json:"minInvestment"`
	TargetAmount             decimal.Decimal `json:"targetAmount"`
	CurrentRaised            decimal.Decimal `json:"currentRaised"`
	Status                   string          `json:"status"`
	UnderlyingAsset          string          `json:"underlyingAsset"`
	AssetClass               string          `json:"assetClass"`
	Geography                string          `json:"geography"`
	RiskRating               string          `json:"riskRating"`
	Issuer                   string          `json:"issuer"`
	IssuerRating             string          `json:"issuerRating,omitempty"`
	TotalEarningsDistributed decimal.Decimal `json:"totalEarningsDistributed"`
	StartDate                *time.Time      `json:"startDate,omitempty"`
	MaturityDate             *time.Time      `json:"maturityDate,omitempty"`
	Version                  int64           `json:"-"`
	Positions                []Position      `json:"investors,omitempty"`
	CreatedAt                time.Time       `json:"createdAt"`
	UpdatedAt                time.Time       `json:"updatedAt"`
}

// Remaining is the capacity left before the deal reaches its target.
func (d *Deal) Remaining() decimal.Decimal {
	return d.TargetAmount.Sub(d.CurrentRaised)
}

// UserInvestment is a position joined with the deal it belongs to
type UserInvestment struct {
	PositionId      string          `json:"positionId"`
	DealId          string          `json:"dealId"`
	DealTitle       string          `json:"dealTitle"`
	AssetClass      string          `json:"assetClass"`
	RiskRating      string          `json:"riskRating"`
	Apy             decimal.Decimal `json:"apy"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	EarningsAccrued decimal.Decimal `json:"earningsAccrued"`
	InvestmentDate  time.Time       `json:"investmentDate"`
}
