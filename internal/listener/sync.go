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
	"time"

	"piron-pools-go/internal/metrics"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"go.uber.org/zap"
)

// SyncPool mirrors the manager's record for one pool into the store. The chain
// status overwrites the stored one without transition checks.
func (r *Reconciler) SyncPool(ctx context.Context, poolId string) (*models.SyncResult, error) {
	pool, err := r.dbService.GetPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	return r.syncPool(ctx, pool)
}

func (r *Reconciler) syncPool(ctx context.Context, pool *models.Pool) (*models.SyncResult, error) {
	start := time.Now()

	state, err := r.chain.ReadPoolState(ctx, pool)
	if err != nil {
		metrics.RecordPoolSync(time.Since(start), false)
		return nil, fmt.Errorf("unable to read chain state for pool %s: %w", pool.Id, err)
	}

	updated, err := r.writeState(ctx, pool.Id, state, state.Status)
	metrics.RecordPoolSync(time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	if updated.Status != pool.Status {
		zap.L().Info("Pool status changed on chain",
			zap.String("pool_id", pool.Id),
			zap.String("from", string(pool.Status)),
			zap.String("to", string(updated.Status)))
	}

	return syncResult(updated), nil
}

func (r *Reconciler) writeState(ctx context.Context, poolId string, state *models.OnchainPoolState, status models.PoolStatus) (*models.Pool, error) {
	return r.dbService.SyncPool(ctx, poolId, store.SyncPoolParams{
		TotalRaised:    state.TotalRaised,
		TotalInvestors: state.TotalInvestors,
		ActualInvested: state.ActualInvested,
		Status:         &status,
	})
}

func syncResult(p *models.Pool) *models.SyncResult {
	result := &models.SyncResult{
		PoolId:         p.Id,
		Status:         p.Status,
		TotalRaised:    p.TotalRaised,
		ActualInvested: p.ActualInvested,
		TotalInvestors: p.TotalInvestors,
	}
	if p.LastSyncedAt != nil {
		result.SyncedAt = *p.LastSyncedAt
	}
	return result
}
