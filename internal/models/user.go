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
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// KYC statuses
const (
	KycPending  = "pending"
	KycVerified = "verified"
	KycRejected = "rejected"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the loose address check used across the API
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Subscription plans and billing cycles
const (
	PlanFree        = "free"
	PlanPremium     = "premium"
	PlanPremiumPlus = "premium_plus"

	BillingMonthly = "monthly"
	BillingAnnual  = "annual"
)

// Subscription is the premium state embedded in a user record
type Subscription struct {
	Plan         string     `json:"plan"`
	BillingCycle string     `json:"billingCycle,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	IsActive     bool       `json:"isActive"`
	PaymentRef   string     `json:"-"`
}

// ActiveAt reports whether the subscription grants premium access at t.
func (s Subscription) ActiveAt(t time.Time) bool {
	if !s.IsActive || s.Plan == PlanFree || s.Plan == "" {
		return false
	}
	return s.EndDate == nil || t.Before(*s.EndDate)
}

// User is an investor account. Email and WalletAddress are optional but a
// stored user always has at least one of them.
type User struct {
	Id            string          `json:"id"`
	Email         *string         `json:"email,omitempty"`
	WalletAddress *string         `json:"walletAddress,omitempty"`
	PasswordHash  string          `json:"-"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	PhoneNumber   string          `json:"phoneNumber,omitempty"`
	Country       string          `json:"country,omitempty"`
	IsVerified    bool            `json:"isVerified"`
	KycStatus     string          `json:"kycStatus"`
	Subscription  Subscription    `json:"subscription"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	TotalEarned   decimal.Decimal `json:"totalEarned"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DisplayName returns "First Last", falling back to the email or wallet.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	if u.Email != nil {
		return *u.Email
	}
	if u.WalletAddress != nil {
		return *u.WalletAddress
	}
	return u.Id
}

// KYCVerification links a provider inquiry to a user
type KYCVerification struct {
	Id        string    `json:"id"`
	UserId    string    `json:"userId"`
	InquiryId string    `json:"inquiryId"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
