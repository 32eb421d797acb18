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

package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"piron-pools-go/internal/common"
	"piron-pools-go/internal/config"
	"piron-pools-go/internal/database"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/pool"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type poolStats struct {
	totalPools     int
	totalRaised    decimal.Decimal
	totalInvestors int64
	syncFailures   int
}

func loadPools(ctx context.Context, dbService *database.Service, status string) ([]models.Pool, error) {
	if status == "" {
		return dbService.ListPools(ctx)
	}
	s := models.PoolStatus(strings.ToUpper(status))
	if !pool.IsValidStatus(s) {
		return nil, fmt.Errorf("unknown pool status %q", status)
	}
	return dbService.ListPoolsByStatus(ctx, s)
}

// syncPools refreshes every listed pool from the chain and returns the updated
// records. Pools without contract addresses are left as they are.
func syncPools(ctx context.Context, services *common.Services, pools []models.Pool) ([]models.Pool, int) {
	reconciler := services.Reconciler()
	failures := 0

	for i, p := range pools {
		if p.PoolAddress == "" || p.ManagerAddress == "" {
			continue
		}
		if _, err := reconciler.SyncPool(ctx, p.Id); err != nil {
			zap.L().Error("Failed to sync pool",
				zap.String("pool_id", p.Id),
				zap.String("pool_name", p.Name),
				zap.Error(err))
			failures++
			continue
		}
		updated, err := services.DbService.GetPool(ctx, p.Id)
		if err != nil {
			zap.L().Error("Failed to reload pool", zap.String("pool_id", p.Id), zap.Error(err))
			failures++
			continue
		}
		pools[i] = *updated
	}

	return pools, failures
}

func closeEpoch(ctx context.Context, services *common.Services, poolId string, force bool) {
	result, err := services.Reconciler().CloseEpoch(ctx, poolId, force)
	if err != nil {
		zap.L().Fatal("Failed to close epoch", zap.String("pool_id", poolId), zap.Error(err))
	}

	common.PrintHeader("EPOCH CLOSED", common.DefaultWidth)
	fmt.Printf("Pool:     %s\n", result.PoolId)
	fmt.Printf("Tx hash:  %s\n", result.TxHash)
	fmt.Printf("Block:    %d\n", result.BlockNumber)
	fmt.Printf("Status:   %s\n", result.Status)
	fmt.Printf("Forced:   %t\n", result.Forced)
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	statusFlag := flag.String("status", "", "Filter by pool status (optional)")
	syncFlag := flag.Bool("sync", false, "Refresh pools from the chain before printing")
	closeFlag := flag.String("close-epoch", "", "Close the funding epoch of the given pool id")
	forceFlag := flag.Bool("force", false, "With --close-epoch: close before the epoch end time")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if *closeFlag != "" || *syncFlag {
		services, err := common.InitializeServices(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize services", zap.Error(err))
		}
		defer services.Close()

		if *closeFlag != "" {
			if _, err := services.RequireOperator(); err != nil {
				logger.Fatal("Closing an epoch needs an operator key", zap.Error(err))
			}
			closeEpoch(ctx, services, *closeFlag, *forceFlag)
			return
		}

		pools, err := loadPools(ctx, services.DbService, *statusFlag)
		if err != nil {
			logger.Fatal("Failed to list pools", zap.Error(err))
		}
		pools, failures := syncPools(ctx, services, pools)
		report(pools, failures)
		return
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	pools, err := loadPools(ctx, dbService, *statusFlag)
	if err != nil {
		logger.Fatal("Failed to list pools", zap.Error(err))
	}
	report(pools, 0)
}

func report(pools []models.Pool, syncFailures int) {
	common.PrintHeader("POOLS REPORT", common.WideWidth)

	stats := poolStats{syncFailures: syncFailures}
	for _, p := range pool.DecorateAll(pools) {
		common.PrintPool(p)
		stats.totalPools++
		stats.totalRaised = stats.totalRaised.Add(p.TotalRaised)
		stats.totalInvestors += p.TotalInvestors
	}

	summary := fmt.Sprintf("SUMMARY: %d pools, %s raised, %d investors",
		stats.totalPools, stats.totalRaised.StringFixed(2), stats.totalInvestors)
	if stats.syncFailures > 0 {
		summary += fmt.Sprintf(" (%d pools failed to sync)", stats.syncFailures)
	}
	common.PrintFooter(summary, common.WideWidth)

	zap.L().Info("Pool report completed",
		zap.Int("pools", stats.totalPools),
		zap.String("total_raised", stats.totalRaised.String()),
		zap.Int("sync_failures", stats.syncFailures))
}
