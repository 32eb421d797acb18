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
	"fmt"
	"strings"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var clerkId, wallet sql.NullString
	var submittedAt, reviewedAt sql.NullTime

	err := row.Scan(
		&user.Id, &clerkId, &user.Email, &wallet, &user.FirstName, &user.LastName, &user.IdType, &user.IdNumber,
		&user.DateOfBirth, &user.Country, &user.City, &user.Address, &user.ZipCode, &user.KycStatus, &user.KycLevel,
		&user.InvestmentLimit, &user.RejectionReason, &submittedAt, &reviewedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.ClerkId = clerkId.String
	user.WalletAddress = wallet.String
	user.KycSubmittedAt = timePtr(submittedAt)
	user.KycReviewedAt = timePtr(reviewedAt)
	return &user, nil
}

func (s *Service) CreateUser(ctx context.Context, clerkId, email, walletAddress string) (*models.User, error) {
	if strings.TrimSpace(clerkId) == "" && strings.TrimSpace(walletAddress) == "" {
		return nil, fmt.Errorf("user needs a clerk id or a wallet address")
	}

	userId := uuid.New().String()
	wallet := strings.ToLower(strings.TrimSpace(walletAddress))
	now := time.Now().UTC()

	zap.L().Info("Creating user",
		zap.String("id", userId),
		zap.String("clerk_id", clerkId),
		zap.String("wallet_address", wallet))

	_, err := s.db.ExecContext(ctx, queryInsertUser,
		userId, nullIfEmpty(clerkId), strings.ToLower(email), nullIfEmpty(wallet),
		models.KycNotStarted, models.KycLevelNone, decimal.Zero.String(), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user with clerk id %q or wallet %q already exists: %w", clerkId, wallet, store.ErrConflict)
		}
		zap.L().Error("Failed to insert user", zap.String("clerk_id", clerkId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	return s.GetUserById(ctx, userId)
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		return nil, notFound(err, "user", userId)
	}
	return user, nil
}

func (s *Service) GetUserByClerkId(ctx context.Context, clerkId string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByClerkId, clerkId))
	if err != nil {
		return nil, notFound(err, "user with clerk id", clerkId)
	}
	return user, nil
}

func (s *Service) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	wallet := strings.ToLower(strings.TrimSpace(walletAddress))
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByWallet, wallet))
	if err != nil {
		return nil, notFound(err, "user with wallet", wallet)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryListUsers, limit, offset)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

// SetUserWallet links the user's primary wallet. Relinking the same wallet is a
// no-op; a different wallet on a user that already has one is refused.
func (s *Service) SetUserWallet(ctx context.Context, userId, walletAddress string) (*models.User, error) {
	wallet := strings.ToLower(strings.TrimSpace(walletAddress))

	user, err := s.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.WalletAddress == wallet {
		return user, nil
	}
	if user.WalletAddress != "" {
		return nil, fmt.Errorf("user %s has wallet %s: %w", userId, user.WalletAddress, store.ErrWalletAlreadySet)
	}

	result, err := s.db.ExecContext(ctx, querySetUserWallet, wallet, time.Now().UTC(), userId)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("wallet %s belongs to another user: %w", wallet, store.ErrConflict)
		}
		return nil, fmt.Errorf("unable to set wallet: %w", err)
	}
	if err := checkAffected(result, "user", userId); err != nil {
		return nil, err
	}

	zap.L().Info("Linked user wallet", zap.String("user_id", userId), zap.String("wallet_address", wallet))
	return s.GetUserById(ctx, userId)
}

func (s *Service) UpdateUserKyc(ctx context.Context, userId string, update store.KycUpdate) (*models.User, error) {
	result, err := s.db.ExecContext(ctx, queryUpdateUserKyc,
		update.FirstName, update.LastName, update.IdType, update.IdNumber, update.DateOfBirth,
		update.Country, update.City, update.Address, update.ZipCode,
		update.Status, update.Level, update.InvestmentLimit.String(), update.RejectionReason,
		nullTime(update.SubmittedAt), nullTime(update.ReviewedAt),
		time.Now().UTC(), userId)
	if err != nil {
		zap.L().Error("Failed to update KYC", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to update kyc: %w", err)
	}
	if err := checkAffected(result, "user", userId); err != nil {
		return nil, err
	}

	zap.L().Info("KYC updated",
		zap.String("user_id", userId),
		zap.String("status", string(update.Status)),
		zap.String("level", string(update.Level)),
		zap.String("investment_limit", update.InvestmentLimit.String()))

	return s.GetUserById(ctx, userId)
}

func (s *Service) DeleteUser(ctx context.Context, userId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteUser, userId)
	if err != nil {
		return fmt.Errorf("unable to delete user: %w", err)
	}
	if err := checkAffected(result, "user", userId); err != nil {
		return err
	}
	zap.L().Info("User deleted", zap.String("user_id", userId))
	return nil
}
