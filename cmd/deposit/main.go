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
	"errors"
	"flag"
	"fmt"
	"strings"

	"piron-pools-go/internal/common"
	"piron-pools-go/internal/config"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/pool"
	"piron-pools-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type depositRequest struct {
	userRef string
	poolId  string
	amount  decimal.Decimal
	txHash  string
}

func parseFlags() (*depositRequest, error) {
	userFlag := flag.String("user", "", "User id, clerk id or wallet address (required)")
	poolFlag := flag.String("pool", "", "Pool id (required)")
	amountFlag := flag.String("amount", "", "Deposit amount in asset units (required)")
	txHashFlag := flag.String("tx-hash", "", "Record an already mined deposit instead of sending one")
	flag.Parse()

	if *userFlag == "" || *poolFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("flags --user, --pool and --amount are required")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", *amountFlag, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	return &depositRequest{
		userRef: *userFlag,
		poolId:  *poolFlag,
		amount:  amount,
		txHash:  strings.TrimSpace(*txHashFlag),
	}, nil
}

func checkPoolAcceptsDeposits(p *models.Pool, amount decimal.Decimal) error {
	if p.Status != models.PoolFunding {
		return fmt.Errorf("pool %s is %s, deposits need FUNDING", p.Id, p.Status)
	}
	if p.MinimumInvestment.IsPositive() && amount.LessThan(p.MinimumInvestment) {
		return fmt.Errorf("amount %s is below the pool minimum of %s", amount, p.MinimumInvestment)
	}
	return nil
}

// sendDeposit signs the deposit with the operator key. The user must either
// have no wallet yet, in which case the operator address is linked to them, or
// already have the operator address linked.
func sendDeposit(ctx context.Context, services *common.Services, user *models.User, p *models.Pool, amount decimal.Decimal) (string, error) {
	operator, err := services.RequireOperator()
	if err != nil {
		return "", err
	}

	if user.WalletAddress != "" && !strings.EqualFold(user.WalletAddress, operator.Address()) {
		return "", fmt.Errorf("user wallet %s is not the operator address %s", user.WalletAddress, operator.Address())
	}
	if user.WalletAddress == "" {
		linked, err := services.DbService.SetUserWallet(ctx, user.Id, operator.Address())
		if err != nil {
			return "", fmt.Errorf("unable to link operator wallet to user %s: %w", user.Id, err)
		}
		*user = *linked
		fmt.Printf("Linked operator wallet %s to user %s\n", linked.WalletAddress, user.Id)
	}

	fmt.Println("Sending deposit from operator wallet...")
	zap.L().Info("Sending deposit",
		zap.String("pool_id", p.Id),
		zap.String("pool_address", p.PoolAddress),
		zap.String("operator", operator.Address()),
		zap.String("amount", amount.String()))

	receipt, err := operator.DepositWithApproval(ctx, p, amount)
	if err != nil {
		return "", fmt.Errorf("on-chain deposit failed: %w", err)
	}

	fmt.Printf("Deposit mined in block %d: %s\n\n", receipt.BlockNumber, receipt.TxHash)
	return receipt.TxHash, nil
}

func printDepositSummary(user *models.User, p *models.Pool, result *models.DepositResult) {
	common.PrintHeader("DEPOSIT RECORDED", common.DefaultWidth)
	fmt.Printf("User:           %s (%s)\n", user.Email, user.Id)
	fmt.Printf("Pool:           %s\n", p.Name)
	fmt.Printf("Amount:         %s\n", common.FormatAmount(result.Amount, p.AssetSymbol))
	fmt.Printf("Shares:         %s\n", result.Shares.String())
	fmt.Printf("Tx hash:        %s\n", result.TxHash)
	fmt.Printf("Block:          %d\n", result.BlockNumber)
	fmt.Printf("From chain:     %t\n", result.AmountFromChain)
	fmt.Printf("First deposit:  %t\n", result.FirstDeposit)
	common.PrintSeparator("=", common.DefaultWidth)
	if result.Warning != "" {
		fmt.Printf("\nWARNING: %s\n", result.Warning)
		fmt.Printf("Cause:   %s\n", result.Error)
	}
	fmt.Println()
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseFlags()
	if err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := common.ResolveUser(ctx, services.DbService, req.userRef)
	if err != nil {
		zap.L().Fatal("Failed to find user", zap.String("user", req.userRef), zap.Error(err))
	}

	p, err := services.DbService.GetPool(ctx, req.poolId)
	if err != nil {
		zap.L().Fatal("Failed to find pool", zap.String("pool_id", req.poolId), zap.Error(err))
	}
	common.PrintPool(pool.Decorate(*p))
	fmt.Println()

	txHash := req.txHash
	if txHash == "" {
		if err := checkPoolAcceptsDeposits(p, req.amount); err != nil {
			zap.L().Fatal("Pool cannot take this deposit", zap.Error(err))
		}
		txHash, err = sendDeposit(ctx, services, user, p, req.amount)
		if err != nil {
			zap.L().Fatal("Deposit failed", zap.Error(err))
		}
	}

	result, err := services.Reconciler().RecordDeposit(ctx, user, p.Id, txHash, req.amount)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			fmt.Printf("\nDeposit %s was already recorded\n\n", txHash)
			return
		}
		zap.L().Fatal("Failed to record deposit", zap.String("tx_hash", txHash), zap.Error(err))
	}

	printDepositSummary(user, p, result)

	zap.L().Info("Deposit completed",
		zap.String("user_id", user.Id),
		zap.String("pool_id", p.Id),
		zap.String("tx_hash", result.TxHash),
		zap.String("amount", result.Amount.String()))
}
