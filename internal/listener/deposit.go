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
	"errors"
	"fmt"
	"strings"

	"piron-pools-go/internal/metrics"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const recordFailedWarning = "Deposit confirmed on chain but could not be recorded. Please contact support with the transaction hash."

// RecordDeposit verifies a user-submitted deposit transaction and records it.
//
// The user must have a linked wallet. The amount and shares come from the
// pool's Deposit event; when the event cannot be decoded the user-entered amount
// is used for both, and the tx must then be sent to the pool by the user's
// wallet. Once the chain has
// confirmed the deposit the result is always Success, with a Warning when the
// store write failed.
func (r *Reconciler) RecordDeposit(ctx context.Context, user *models.User, poolId, txHash string, entered decimal.Decimal) (*models.DepositResult, error) {
	txHash, ok := normalizeTxHash(txHash)
	if !ok {
		return nil, fmt.Errorf("%q: %w", txHash, ErrInvalidTxHash)
	}
	if user.WalletAddress == "" {
		metrics.RecordDeposit("failed")
		return nil, fmt.Errorf("user %s: %w", user.Id, ErrWalletRequired)
	}

	pool, err := r.dbService.GetPool(ctx, poolId)
	if err != nil {
		return nil, err
	}

	existing, err := r.dbService.GetTransactionByHash(ctx, txHash)
	if err == nil {
		metrics.RecordDeposit("duplicate")
		return nil, fmt.Errorf("%w: tx_hash %s already recorded as %s", store.ErrDuplicateTransaction, txHash, existing.Id)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	zap.L().Info("Verifying deposit",
		zap.String("user_id", user.Id),
		zap.String("pool_id", pool.Id),
		zap.String("tx_hash", txHash))

	receipt, err := r.chain.VerifyDeposit(ctx, pool, txHash)
	if err != nil {
		metrics.RecordDeposit("failed")
		zap.L().Error("Deposit verification failed",
			zap.String("pool_id", pool.Id),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return nil, fmt.Errorf("unable to verify deposit %s: %w", txHash, err)
	}

	amount, shares := entered, entered
	if receipt.EventFound {
		if err := checkDepositor(user, receipt); err != nil {
			metrics.RecordDeposit("failed")
			return nil, err
		}
		amount, shares = receipt.Assets, receipt.Shares
	} else {
		if err := checkDirectDeposit(user, pool, receipt); err != nil {
			metrics.RecordDeposit("failed")
			return nil, err
		}
		zap.L().Warn("No Deposit event in receipt, using entered amount",
			zap.String("tx_hash", txHash),
			zap.String("entered_amount", entered.String()))
	}

	if !amount.IsPositive() {
		metrics.RecordDeposit("failed")
		return nil, fmt.Errorf("%s: %w", amount, ErrInvalidAmount)
	}

	result := &models.DepositResult{
		Success:         true,
		PoolId:          pool.Id,
		Amount:          amount,
		Shares:          shares,
		TxHash:          txHash,
		BlockNumber:     receipt.BlockNumber,
		AmountFromChain: receipt.EventFound,
	}

	transaction, first, err := r.dbService.RecordDeposit(ctx, store.RecordDepositParams{
		UserId:      user.Id,
		PoolId:      pool.Id,
		Amount:      amount,
		Shares:      shares,
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			metrics.RecordDeposit("duplicate")
			return nil, err
		}

		metrics.RecordDeposit("warning")
		zap.L().Error("Deposit confirmed on chain but not recorded",
			zap.String("user_id", user.Id),
			zap.String("pool_id", pool.Id),
			zap.String("tx_hash", txHash),
			zap.String("amount", amount.String()),
			zap.Error(err))
		result.Warning = recordFailedWarning
		result.Error = err.Error()
		return result, nil
	}

	result.TransactionId = transaction.Id
	result.FirstDeposit = first
	metrics.RecordDeposit("recorded")

	zap.L().Info("Deposit recorded",
		zap.String("transaction_id", transaction.Id),
		zap.String("pool_id", pool.Id),
		zap.String("amount", amount.String()),
		zap.Bool("amount_from_chain", receipt.EventFound),
		zap.Bool("first_deposit", first))

	return result, nil
}

// checkDepositor requires the signer or the share owner to be the user's wallet.
func checkDepositor(user *models.User, receipt *models.DepositReceipt) error {
	if strings.EqualFold(receipt.Sender, user.WalletAddress) || strings.EqualFold(receipt.Owner, user.WalletAddress) {
		return nil
	}
	return fmt.Errorf("sender %s, owner %s, wallet %s: %w",
		receipt.Sender, receipt.Owner, user.WalletAddress, ErrSenderMismatch)
}

// checkDirectDeposit guards the entered-amount path: with no event to read,
// only a tx the user's wallet sent straight to the pool is accepted.
func checkDirectDeposit(user *models.User, pool *models.Pool, receipt *models.DepositReceipt) error {
	if receipt.To == "" || !strings.EqualFold(receipt.To, pool.PoolAddress) {
		return fmt.Errorf("tx %s to %q, pool %s: %w", receipt.TxHash, receipt.To, pool.PoolAddress, ErrNotPoolDeposit)
	}
	if !strings.EqualFold(receipt.Sender, user.WalletAddress) {
		return fmt.Errorf("sender %s, wallet %s: %w", receipt.Sender, user.WalletAddress, ErrSenderMismatch)
	}
	return nil
}
