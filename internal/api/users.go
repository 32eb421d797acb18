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

package api

import (
	"context"
	"errors"
	"strings"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// EnsureUser returns the user for the signed-in principal, creating it on first sign-in.
func (s *Service) EnsureUser(ctx context.Context, p *models.Principal) (*models.User, error) {
	if p == nil || p.ClerkId == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.dbService.GetUserByClerkId(ctx, p.ClerkId)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user, err = s.dbService.CreateUser(ctx, p.ClerkId, p.Email, "")
	if errors.Is(err, store.ErrConflict) {
		// created by a concurrent request
		return s.dbService.GetUserByClerkId(ctx, p.ClerkId)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("User created on first sign-in", zap.String("user_id", user.Id), zap.String("clerk_id", p.ClerkId))
	return user, nil
}

// LinkWallet sets the principal's primary wallet.
func (s *Service) LinkWallet(ctx context.Context, p *models.Principal, walletAddress string) (*models.User, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if !common.IsHexAddress(walletAddress) {
		return nil, invalidInput("%q is not a valid wallet address", walletAddress)
	}

	user, err := s.EnsureUser(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.dbService.SetUserWallet(ctx, user.Id, walletAddress)
}

func (s *Service) ListUsers(ctx context.Context, p *models.Principal, limit, offset int) ([]models.User, error) {
	if _, err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.dbService.ListUsers(ctx, clampLimit(limit), clampOffset(offset))
}

func (s *Service) GetUser(ctx context.Context, p *models.Principal, userId string) (*models.User, error) {
	if _, err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.dbService.GetUserById(ctx, userId)
}

// DeleteUser hard-deletes a user record. Transactions are kept.
func (s *Service) DeleteUser(ctx context.Context, p *models.Principal, userId string) error {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return err
	}

	user, err := s.dbService.GetUserById(ctx, userId)
	if err != nil {
		return err
	}
	if err := s.dbService.DeleteUser(ctx, userId); err != nil {
		return err
	}

	s.audit(ctx, actor, "DELETE_USER", userId, map[string]any{
		"email":          user.Email,
		"wallet_address": user.WalletAddress,
	})
	return nil
}
