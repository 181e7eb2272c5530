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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var email, wallet sql.NullString
	var subStart, subEnd sql.NullTime
	var totalInvested, totalEarned string

	err := row.Scan(&user.Id, &email, &wallet, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.PhoneNumber, &user.Country, &user.IsVerified, &user.KycStatus,
		&user.Subscription.Plan, &user.Subscription.BillingCycle, &subStart, &subEnd,
		&user.Subscription.IsActive, &user.Subscription.PaymentRef,
		&totalInvested, &totalEarned, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.Email = stringPtr(email)
	user.WalletAddress = stringPtr(wallet)
	user.Subscription.StartDate = timePtr(subStart)
	user.Subscription.EndDate = timePtr(subEnd)

	var d decimals
	user.TotalInvested = d.parse("total_invested", totalInvested).Round(sumScale)
	user.TotalEarned = d.parse("total_earned", totalEarned).Round(sumScale)
	if d.err != nil {
		return nil, d.err
	}
	return &user, nil
}

func (s *Service) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, s.q(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user. Emails and wallet addresses are stored lowercase.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	if user.Email == nil && user.WalletAddress == nil {
		return fmt.Errorf("user needs an email or a wallet address")
	}
	if user.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*user.Email))
		user.Email = &email
	}
	if user.WalletAddress != nil {
		wallet := strings.ToLower(strings.TrimSpace(*user.WalletAddress))
		user.WalletAddress = &wallet
	}
	if user.KycStatus == "" {
		user.KycStatus = models.KycPending
	}
	if user.Subscription.Plan == "" {
		user.Subscription.Plan = models.PlanFree
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, s.q(queryInsertUser),
		user.Id, nullString(user.Email), nullString(user.WalletAddress), user.PasswordHash,
		user.FirstName, user.LastName, user.PhoneNumber, user.Country,
		user.IsVerified, user.KycStatus, user.Subscription.Plan, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user already exists", store.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	zap.L().Info("User created", zap.String("id", user.Id), zap.String("name", user.DisplayName()))
	return nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, s.q(queryGetUsers))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Found users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserById, userId)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByEmail, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByWallet, strings.ToLower(strings.TrimSpace(walletAddress)))
}

func (s *Service) UpdateProfile(ctx context.Context, userId string, update store.ProfileUpdate) (*models.User, error) {
	result, err := s.db.ExecContext(ctx, s.q(queryUpdateProfile),
		nullString(update.FirstName), nullString(update.LastName),
		nullString(update.PhoneNumber), nullString(update.Country),
		time.Now().UTC(), userId)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if err := checkRowsAffected(result, store.ErrNotFound); err != nil {
		return nil, err
	}
	return s.GetUserById(ctx, userId)
}

func (s *Service) UpdateKycStatus(ctx context.Context, userId, status string, isVerified bool) error {
	result, err := s.db.ExecContext(ctx, s.q(queryUpdateKycStatus), status, isVerified, time.Now().UTC(), userId)
	if err != nil {
		return fmt.Errorf("failed to update kyc status: %w", err)
	}
	return checkRowsAffected(result, store.ErrNotFound)
}

func (s *Service) UpdateSubscription(ctx context.Context, update store.SubscriptionUpdate) error {
	sub := update.Subscription
	result, err := s.db.ExecContext(ctx, s.q(queryUpdateSubscription),
		sub.Plan, sub.BillingCycle, nullTime(sub.StartDate), nullTime(sub.EndDate),
		sub.IsActive, sub.PaymentRef, time.Now().UTC(), update.UserId)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return checkRowsAffected(result, store.ErrNotFound)
}
