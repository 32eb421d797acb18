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

package listener

import (
	"context"
	"fmt"

	"piron-pools-go/internal/metrics"
	"piron-pools-go/internal/models"

	"go.uber.org/zap"
)

// CloseEpoch ends a pool's funding period. Without force the on-chain epoch end
// time must have passed. The transaction is the same either way; afterwards the
// pool record is resynced with status PENDING_INVESTMENT.
func (r *Reconciler) CloseEpoch(ctx context.Context, poolId string, force bool) (*models.EpochCloseResult, error) {
	pool, err := r.dbService.GetPool(ctx, poolId)
	if err != nil {
		return nil, err
	}

	state, err := r.chain.ReadPoolState(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("unable to read chain state for pool %s: %w", pool.Id, err)
	}
	if state.Status != models.PoolFunding {
		return nil, fmt.Errorf("pool %s is %s on chain: %w", pool.Id, state.Status, ErrEpochClosed)
	}
	if !force && r.now().Before(state.EpochEndTime) {
		return nil, fmt.Errorf("pool %s epoch ends at %s: %w",
			pool.Id, state.EpochEndTime.Format("2006-01-02 15:04:05 MST"), ErrEpochNotEnded)
	}

	zap.L().Info("Closing epoch",
		zap.String("pool_id", pool.Id),
		zap.String("pool_address", pool.PoolAddress),
		zap.Bool("force", force))

	receipt, err := r.chain.CloseEpoch(ctx, pool)
	metrics.RecordEpochClose(err == nil)
	if err != nil {
		return nil, fmt.Errorf("closeEpoch for pool %s failed: %w", pool.Id, err)
	}

	if fresh, err := r.chain.ReadPoolState(ctx, pool); err == nil {
		state = fresh
	} else {
		zap.L().Warn("Unable to refresh pool state after epoch close, keeping previous counters",
			zap.String("pool_id", pool.Id),
			zap.Error(err))
	}

	updated, err := r.writeState(ctx, pool.Id, state, models.PoolPendingInvestment)
	if err != nil {
		return nil, fmt.Errorf("epoch closed in tx %s but pool record not updated: %w", receipt.TxHash, err)
	}

	zap.L().Info("Epoch closed",
		zap.String("pool_id", pool.Id),
		zap.String("tx_hash", receipt.TxHash),
		zap.Uint64("block", receipt.BlockNumber))

	return &models.EpochCloseResult{
		PoolId:      pool.Id,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		Forced:      force,
		Status:      updated.Status,
	}, nil
}
