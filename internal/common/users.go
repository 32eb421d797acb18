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

package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"go.uber.org/zap"
)

// ResolveUser finds a user by wallet address (0x-prefixed), internal id or
// identity provider subject, in that order.
func ResolveUser(ctx context.Context, dbService store.PoolStore, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("user reference cannot be empty")
	}

	if strings.HasPrefix(strings.ToLower(ref), "0x") {
		zap.L().Info("Looking up user by wallet", zap.String("wallet_address", ref))
		return dbService.GetUserByWallet(ctx, ref)
	}

	user, err := dbService.GetUserById(ctx, ref)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	zap.L().Info("Looking up user by clerk id", zap.String("clerk_id", ref))
	user, err = dbService.GetUserByClerkId(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", ref, err)
	}
	return user, nil
}

// ListUsers pages through every user when no filter is given, or returns the
// single user matching ref.
func ListUsers(ctx context.Context, dbService store.PoolStore, ref string) ([]models.User, error) {
	if ref != "" {
		user, err := ResolveUser(ctx, dbService, ref)
		if err != nil {
			return nil, err
		}
		return []models.User{*user}, nil
	}

	const pageSize = 100
	var users []models.User
	for offset := 0; ; offset += pageSize {
		page, err := dbService.ListUsers(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		users = append(users, page...)
		if len(page) < pageSize {
			break
		}
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
