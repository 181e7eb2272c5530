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

// MoneyScale is the number of decimal places amounts are kept to
const MoneyScale = 2

// MaxMoney is the largest amount SQLite's NUMERIC affinity stores without
// rounding: it keeps 15 significant digits.
var MaxMoney = decimal.RequireFromString("9999999999999.99")

// IsWholeCents reports whether amount has at most MoneyScale decimal places
func IsWholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MoneyScale))
}

// Storable reports whether amount round-trips through the store unchanged
func Storable(amount decimal.Decimal) bool {
	return IsWholeCents(amount) && amount.Abs().LessThanOrEqual(MaxMoney)
}

// Vault strategies
const (
	StrategyConservative = "conservative"
	StrategyBalanced     = "balanced"
	StrategyAggressive   = "aggressive"
)

// Strategies lists the valid vault strategies
var Strategies = []string{StrategyConservative, StrategyBalanced, StrategyAggressive}

// Vault transaction types
const (
	TxDeposit    = "deposit"
	TxWithdrawal = "withdrawal"
	TxDividend   = "dividend"
	TxRebalance  = "rebalance"
	TxReversal   = "reversal"
)

// Vault transaction statuses
const (
	TxStatusConfirmed = "confirmed"
	TxStatusPending   = "pending"
	TxStatusSettled   = "settled"
	TxStatusReversed  = "reversed"
)

// VaultTransaction is an append-only entry in a vault's history
type VaultTransaction struct {
	Id            string          `json:"id"`
	VaultId       string          `json:"vaultId"`
	UserId        string          `json:"userId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	ExternalRef   string          `json:"transactionHash,omitempty"`
	Status        string          `json:"status"`
	SettlementRef string          `json:"settlementRef,omitempty"`
	CreatedAt     time.Time       `json:"date"`
	SettledAt     *time.Time      `json:"settledAt,omitempty"`
}

// SignedAmount is the effect of the transaction on the vault balance.
// A reversed withdrawal still counts: its reversal entry restores the funds.
func (t VaultTransaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case TxWithdrawal:
		return t.Amount.Neg()
	case TxRebalance:
		return decimal.Zero
	default:
		return t.Amount
	}
}

// Vault is a user's pooled-yield account. There is at most one per user.
type Vault struct {
	Id                string             `json:"id"`
	UserId            string             `json:"userId"`
	Strategy          string             `json:"strategy"`
	TotalDeposited    decimal.Decimal    `json:"totalDeposited"`
	CurrentBalance    decimal.Decimal    `json:"currentBalance"`
	YieldAccrued      decimal.Decimal    `json:"yieldAccrued"`
	RebalanceSchedule string             `json:"rebalanceSchedule"`
	LastRebalance     *time.Time         `json:"lastRebalance,omitempty"`
	Version           int64              `json:"-"`
	Transactions      []VaultTransaction `json:"transactionHistory"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}
