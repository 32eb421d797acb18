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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanPool(row rowScanner) (*models.Pool, error) {
	var pool models.Pool
	var couponRates, couponDates string
	var lastSynced sql.NullTime

	err := row.Scan(
		&pool.Id, &pool.Name, &pool.Description, &pool.InstrumentType, &pool.AssetSymbol, &pool.AssetAddress,
		&pool.PoolAddress, &pool.ManagerAddress, &pool.EscrowAddress, &pool.SpvAddress,
		&pool.TargetRaise, &pool.TotalRaised, &pool.ActualInvested, &pool.TotalInvestors,
		&pool.MinimumInvestment, &pool.DiscountRate, &couponRates, &couponDates,
		&pool.EpochEndTime, &pool.MaturityDate, &pool.Status, &pool.ApprovalStatus, &pool.RiskLevel,
		&pool.CreatedBy, &lastSynced, &pool.Version, &pool.CreatedAt, &pool.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(couponRates), &pool.CouponRates); err != nil {
		return nil, fmt.Errorf("invalid coupon_rates %q: %w", couponRates, err)
	}
	if err := json.Unmarshal([]byte(couponDates), &pool.CouponDates); err != nil {
		return nil, fmt.Errorf("invalid coupon_dates %q: %w", couponDates, err)
	}
	pool.LastSyncedAt = timePtr(lastSynced)
	return &pool, nil
}

func encodeInts(values []int64) (string, error) {
	if values == nil {
		values = []int64{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreatePool inserts a pool in FUNDING with zeroed counters. New pools are
// approved on creation; moderation can move them to REJECTED later.
func (s *Service) CreatePool(ctx context.Context, params store.CreatePoolParams) (*models.Pool, error) {
	couponRates, err := encodeInts(params.CouponRates)
	if err != nil {
		return nil, fmt.Errorf("unable to encode coupon rates: %w", err)
	}
	couponDates, err := encodeInts(params.CouponDates)
	if err != nil {
		return nil, fmt.Errorf("unable to encode coupon dates: %w", err)
	}

	poolId := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, queryInsertPool,
		poolId, params.Name, params.Description, params.InstrumentType, params.AssetSymbol,
		lowerAddr(params.AssetAddress), lowerAddr(params.PoolAddress), lowerAddr(params.ManagerAddress),
		lowerAddr(params.EscrowAddress), lowerAddr(params.SpvAddress),
		params.TargetRaise.String(), params.MinimumInvestment.String(), params.DiscountRate,
		couponRates, couponDates, params.EpochEndTime.UTC(), params.MaturityDate.UTC(),
		models.PoolFunding, models.ApprovalApproved, params.RiskLevel, params.CreatedBy, now, now)
	if err != nil {
		zap.L().Error("Failed to insert pool", zap.String("name", params.Name), zap.Error(err))
		return nil, fmt.Errorf("unable to insert pool: %w", err)
	}

	zap.L().Info("Pool created",
		zap.String("pool_id", poolId),
		zap.String("name", params.Name),
		zap.String("instrument_type", string(params.InstrumentType)),
		zap.String("target_raise", params.TargetRaise.String()),
		zap.String("created_by", params.CreatedBy))

	return s.GetPool(ctx, poolId)
}

func lowerAddr(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func (s *Service) GetPool(ctx context.Context, poolId string) (*models.Pool, error) {
	pool, err := scanPool(s.db.QueryRowContext(ctx, queryGetPool, poolId))
	if err != nil {
		return nil, notFound(err, "pool", poolId)
	}
	return pool, nil
}

func (s *Service) GetPoolByAddress(ctx context.Context, poolAddress string) (*models.Pool, error) {
	pool, err := scanPool(s.db.QueryRowContext(ctx, queryGetPoolByAddress, strings.TrimSpace(poolAddress)))
	if err != nil {
		return nil, notFound(err, "pool at address", poolAddress)
	}
	return pool, nil
}

func (s *Service) ListPools(ctx context.Context) ([]models.Pool, error) {
	return s.queryPools(ctx, queryListPools)
}

func (s *Service) ListPoolsByStatus(ctx context.Context, status models.PoolStatus) ([]models.Pool, error) {
	return s.queryPools(ctx, queryListPoolsByStatus, status)
}

func (s *Service) queryPools(ctx context.Context, query string, args ...any) ([]models.Pool, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query pools", zap.Error(err))
		return nil, fmt.Errorf("unable to query pools: %w", err)
	}
	defer closeRows(rows)

	var pools []models.Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan pool row: %w", err)
		}
		pools = append(pools, *pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pool rows: %w", err)
	}

	zap.L().Debug("Retrieved pools", zap.Int("count", len(pools)))
	return pools, nil
}

// UpdatePoolStatus writes the status unconditionally; transition rules are
// enforced by the caller.
func (s *Service) UpdatePoolStatus(ctx context.Context, poolId string, status models.PoolStatus) (*models.Pool, error) {
	result, err := s.db.ExecContext(ctx, queryUpdatePoolStatus, status, time.Now().UTC(), poolId)
	if err != nil {
		return nil, fmt.Errorf("unable to update pool status: %w", err)
	}
	if err := checkAffected(result, "pool", poolId); err != nil {
		return nil, err
	}

	zap.L().Info("Pool status updated", zap.String("pool_id", poolId), zap.String("status", string(status)))
	return s.GetPool(ctx, poolId)
}

func (s *Service) UpdatePoolApproval(ctx context.Context, poolId string, approval models.ApprovalStatus) (*models.Pool, error) {
	result, err := s.db.ExecContext(ctx, queryUpdatePoolApproval, approval, time.Now().UTC(), poolId)
	if err != nil {
		return nil, fmt.Errorf("unable to update pool approval: %w", err)
	}
	if err := checkAffected(result, "pool", poolId); err != nil {
		return nil, err
	}

	zap.L().Info("Pool approval updated", zap.String("pool_id", poolId), zap.String("approval_status", string(approval)))
	return s.GetPool(ctx, poolId)
}

// SyncPool overwrites the chain-mirrored counters. Last writer wins.
func (s *Service) SyncPool(ctx context.Context, poolId string, params store.SyncPoolParams) (*models.Pool, error) {
	var status any
	if params.Status != nil {
		status = string(*params.Status)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, querySyncPool,
		params.TotalRaised.String(), params.TotalInvestors, params.ActualInvested.String(),
		status, now, now, poolId)
	if err != nil {
		zap.L().Error("Failed to sync pool", zap.String("pool_id", poolId), zap.Error(err))
		return nil, fmt.Errorf("unable to sync pool: %w", err)
	}
	if err := checkAffected(result, "pool", poolId); err != nil {
		return nil, err
	}

	zap.L().Debug("Pool synced with chain",
		zap.String("pool_id", poolId),
		zap.String("total_raised", params.TotalRaised.String()),
		zap.Int64("total_investors", params.TotalInvestors),
		zap.String("actual_invested", params.ActualInvested.String()))

	return s.GetPool(ctx, poolId)
}

func (s *Service) DeletePool(ctx context.Context, poolId string) error {
	result, err := s.db.ExecContext(ctx, queryDeletePool, poolId)
	if err != nil {
		return fmt.Errorf("unable to delete pool: %w", err)
	}
	if err := checkAffected(result, "pool", poolId); err != nil {
		return err
	}
	zap.L().Info("Pool deleted", zap.String("pool_id", poolId))
	return nil
}
