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

	"piron-pools-go/internal/common"
	"piron-pools-go/internal/config"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"go.uber.org/zap"
)

type reportStats struct {
	totalUsers       int
	totalTxs         int
	usersWithHistory int
}

func printTransaction(tx models.Transaction, isLast bool) {
	fmt.Printf("%s %-10s %14s  shares %-14s  %s  block %d  %s\n",
		common.BoxPrefix(isLast),
		tx.Type,
		tx.Amount.StringFixed(2),
		tx.Shares.StringFixed(2),
		common.ShortHash(tx.TxHash),
		tx.BlockNumber,
		tx.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printTransactions(txs []models.Transaction) {
	for i, tx := range txs {
		printTransaction(tx, i == len(txs)-1)
	}
}

func processUser(ctx context.Context, user models.User, dbService store.PoolStore, limit int) (int, error) {
	txs, err := dbService.GetUserTransactions(ctx, user.Id, limit, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to get transactions: %w", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	fmt.Printf("\n┌─ User: %s\n", user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Wallet: %s\n", common.ShortHash(user.WalletAddress))
	fmt.Printf("│  Transactions: %d\n", len(txs))
	printTransactions(txs)

	return len(txs), nil
}

func processPool(ctx context.Context, poolId string, dbService store.PoolStore, limit int) (int, error) {
	p, err := dbService.GetPool(ctx, poolId)
	if err != nil {
		return 0, err
	}
	txs, err := dbService.GetPoolTransactions(ctx, p.Id, limit, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to get transactions: %w", err)
	}

	fmt.Printf("\n┌─ Pool: %s [%s]\n", p.Name, p.Status)
	fmt.Printf("│  ID: %s\n", p.Id)
	fmt.Printf("│  Transactions: %d\n", len(txs))
	printTransactions(txs)

	return len(txs), nil
}

func processUsersAndGenerateReport(ctx context.Context, users []models.User, dbService store.PoolStore, limit int) reportStats {
	stats := reportStats{}

	for _, user := range users {
		stats.totalUsers++

		count, err := processUser(ctx, user, dbService, limit)
		if err != nil {
			zap.L().Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("email", user.Email),
				zap.Error(err))
			continue
		}

		if count > 0 {
			stats.usersWithHistory++
			stats.totalTxs += count
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by user id, clerk id or wallet (optional)")
	poolFlag := flag.String("pool", "", "Show the history of one pool instead of users")
	limitFlag := flag.Int("limit", 50, "Maximum transactions per user or pool")
	flag.Parse()

	logger.Info("Starting transaction query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	common.PrintHeader("TRANSACTION HISTORY", common.WideWidth)

	if *poolFlag != "" {
		count, err := processPool(ctx, *poolFlag, dbService, *limitFlag)
		if err != nil {
			logger.Fatal("Failed to load pool history", zap.String("pool_id", *poolFlag), zap.Error(err))
		}
		common.PrintFooter(fmt.Sprintf("SUMMARY: %d transactions", count), common.WideWidth)
		return
	}

	users, err := common.ListUsers(ctx, dbService, *userFlag)
	if err != nil {
		logger.Fatal("Failed to load users", zap.Error(err))
	}

	stats := processUsersAndGenerateReport(ctx, users, dbService, *limitFlag)

	summary := fmt.Sprintf("SUMMARY: %d users with history (%d transactions across %d users queried)",
		stats.usersWithHistory, stats.totalTxs, stats.totalUsers)
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Transaction query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_history", stats.usersWithHistory),
		zap.Int("total_transactions", stats.totalTxs))
}
