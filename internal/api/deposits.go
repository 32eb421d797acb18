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
	"fmt"

	"piron-pools-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const settingDepositsPaused = "deposits_paused"

// RecordDepositRequest is the input of RecordDeposit
type RecordDepositRequest struct {
	PoolId string `json:"pool_id" validate:"required"`
	TxHash string `json:"tx_hash" validate:"required"`
	Amount string `json:"amount" validate:"required,numeric"`
}

// RecordDeposit records a deposit the user already sent on chain. See
// listener.Reconciler.RecordDeposit for the verification rules.
func (s *Service) RecordDeposit(ctx context.Context, p *models.Principal, req RecordDepositRequest) (*models.DepositResult, error) {
	if !signedIn(p) {
		return nil, ErrUnauthorized
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireReconciler(); err != nil {
		return nil, err
	}

	entered, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, invalidInput("amount %q: %v", req.Amount, err)
	}

	user, err := s.EnsureUser(ctx, p)
	if err != nil {
		return nil, err
	}

	paused, err := s.settingEnabled(ctx, settingDepositsPaused)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, ErrDepositsPaused
	}

	result, err := s.reconciler.RecordDeposit(ctx, user, req.PoolId, req.TxHash, entered)
	if err != nil {
		return nil, translateReconcileErr(err)
	}

	if result.TransactionId != "" {
		s.notify(ctx, user.Id, "DEPOSIT", "Deposit confirmed",
			fmt.Sprintf("Your deposit of %s was confirmed in block %d.", result.Amount, result.BlockNumber))
		s.invalidateMetrics(ctx)
	}

	return result, nil
}

// notify creates a user notification. Failures are logged, never returned.
func (s *Service) notify(ctx context.Context, userId, notificationType, title, message string) {
	if _, err := s.dbService.CreateNotification(ctx, userId, notificationType, title, message); err != nil {
		zap.L().Error("Failed to create notification",
			zap.String("user_id", userId),
			zap.String("type", notificationType),
			zap.Error(err))
	}
}
