package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxCounterAttempts bounds the retries of a version-checked pool counter update.
const maxCounterAttempts = 3

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var blockNumber int64
	err := row.Scan(&tx.Id, &tx.UserId, &tx.PoolId, &tx.Type, &tx.Amount, &tx.Shares,
		&tx.TxHash, &blockNumber, &tx.Status, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	tx.BlockNumber = uint64(blockNumber)
	return &tx, nil
}

// RecordDeposit atomically inserts a confirmed DEPOSIT row and advances the
// pool's total_raised, incrementing total_investors only on the user's first
// deposit into the pool. The boolean result reports whether it was the first.
func (s *Service) RecordDeposit(ctx context.Context, params store.RecordDepositParams) (*models.Transaction, bool, error) {
	zap.L().Info("Recording deposit",
		zap.String("user_id", params.UserId),
		zap.String("pool_id", params.PoolId),
		zap.String("amount", params.Amount.String()),
		zap.String("tx_hash", params.TxHash))

	var lastErr error
	for attempt := 1; attempt <= maxCounterAttempts; attempt++ {
		transaction, first, err := s.recordDepositOnce(ctx, params)
		if err == nil {
			return transaction, first, nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) {
			return nil, false, err
		}

		lastErr = err
		zap.L().Warn("Pool counters changed underneath deposit, retrying",
			zap.String("pool_id", params.PoolId),
			zap.String("tx_hash", params.TxHash),
			zap.Int("attempt", attempt))
	}

	return nil, false, fmt.Errorf("deposit %s not recorded after %d attempts: %w", params.TxHash, maxCounterAttempts, lastErr)
}

func (s *Service) recordDepositOnce(ctx context.Context, params store.RecordDepositParams) (*models.Transaction, bool, error) {
	transactionId := uuid.New().String()
	var first bool

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkDuplicate(ctx, tx, params.TxHash); err != nil {
			return err
		}

		var totalRaised decimal.Decimal
		var totalInvestors, version int64
		err := tx.QueryRowContext(ctx, queryGetPoolCounters, params.PoolId).Scan(&totalRaised, &totalInvestors, &version)
		if err != nil {
			return notFound(err, "pool", params.PoolId)
		}

		var priorDeposits int
		if err := tx.QueryRowContext(ctx, queryCountUserPoolDeposits, params.UserId, params.PoolId).Scan(&priorDeposits); err != nil {
			return fmt.Errorf("failed to count prior deposits: %w", err)
		}
		first = priorDeposits == 0

		if err := insertTransaction(ctx, tx, transactionId, params.UserId, params.PoolId, models.TxDeposit,
			params.Amount, params.Shares, params.TxHash, params.BlockNumber); err != nil {
			return err
		}

		newInvestors := totalInvestors
		if first {
			newInvestors++
		}
		newRaised := totalRaised.Add(params.Amount)

		result, err := tx.ExecContext(ctx, queryUpdatePoolCounters,
			newRaised.String(), newInvestors, time.Now().UTC(), params.PoolId, version)
		if err != nil {
			return fmt.Errorf("failed to update pool counters: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("pool counter update failed - %w", store.ErrConcurrentModification)
		}

		zap.L().Info("Deposit recorded",
			zap.String("transaction_id", transactionId),
			zap.String("pool_id", params.PoolId),
			zap.String("old_total_raised", totalRaised.String()),
			zap.String("new_total_raised", newRaised.String()),
			zap.Bool("first_deposit", first))
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	transaction, err := s.GetTransactionByHash(ctx, params.TxHash)
	if err != nil {
		return nil, false, err
	}
	return transaction, first, nil
}

func checkDuplicate(ctx context.Context, tx *sql.Tx, txHash string) error {
	var existingId string
	err := tx.QueryRowContext(ctx, queryCheckDuplicateTransaction, txHash).Scan(&existingId)
	if err == nil {
		zap.L().Warn("Duplicate tx hash detected, skipping",
			zap.String("tx_hash", txHash),
			zap.String("existing_transaction_id", existingId))
		return fmt.Errorf("%w: tx_hash %s already recorded", store.ErrDuplicateTransaction, txHash)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, id, userId, poolId string, txType models.TransactionType,
	amount, shares decimal.Decimal, txHash string, blockNumber uint64) error {
	_, err := tx.ExecContext(ctx, queryInsertTransaction,
		id, userId, poolId, txType, amount.String(), shares.String(), txHash, int64(blockNumber),
		models.TxStatusConfirmed, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: tx_hash %s already recorded", store.ErrDuplicateTransaction, txHash)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Service) GetTransactionByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionByHash, txHash))
	if err != nil {
		return nil, notFound(err, "transaction", txHash)
	}
	return transaction, nil
}

// GetUserTransactions returns a user's history, newest first.
func (s *Service) GetUserTransactions(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	return s.queryTransactions(ctx, queryGetUserTransactions, userId, limit, offset)
}

// GetPoolTransactions returns a pool's history, newest first.
func (s *Service) GetPoolTransactions(ctx context.Context, poolId string, limit, offset int) ([]models.Transaction, error) {
	return s.queryTransactions(ctx, queryGetPoolTransactions, poolId, limit, offset)
}

func (s *Service) queryTransactions(ctx context.Context, query, key string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("key", key),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, query, key, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer closeRows(rows)

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
