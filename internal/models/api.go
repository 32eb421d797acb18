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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolWithComputed is a pool decorated with read-time indicators
type PoolWithComputed struct {
	Pool
	ProgressPercentage float64 `json:"progress_percentage"`
	ExpectedAPY        float64 `json:"expected_apy"`
}

// TransactionRecord represents a transaction in a user's or pool's history
type TransactionRecord struct {
	Id          string          `json:"id"`
	PoolId      string          `json:"pool_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Shares      decimal.Decimal `json:"shares"`
	TxHash      string          `json:"tx_hash"`
	BlockNumber uint64          `json:"block_number"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DepositResult represents the result of recording a confirmed deposit
type DepositResult struct {
	Success         bool            `json:"success"`
	TransactionId   string          `json:"transaction_id,omitempty"`
	PoolId          string          `json:"pool_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Shares          decimal.Decimal `json:"shares"`
	TxHash          string          `json:"tx_hash,omitempty"`
	BlockNumber     uint64          `json:"block_number,omitempty"`
	FirstDeposit    bool            `json:"first_deposit"`
	AmountFromChain bool            `json:"amount_from_chain"`
	Warning         string          `json:"warning,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// SyncResult reports what a chain reconciliation wrote to the pool record
type SyncResult struct {
	PoolId         string          `json:"pool_id"`
	Status         PoolStatus      `json:"status"`
	TotalRaised    decimal.Decimal `json:"total_raised"`
	ActualInvested decimal.Decimal `json:"actual_invested"`
	TotalInvestors int64           `json:"total_investors"`
	SyncedAt       time.Time       `json:"synced_at"`
}

// PlatformMetrics summarises the pool book for marketing and dashboard pages
type PlatformMetrics struct {
	TotalValueLocked decimal.Decimal    `json:"total_value_locked"`
	TotalInvestors   int64              `json:"total_investors"`
	PoolCount        int                `json:"pool_count"`
	PoolsByStatus    map[PoolStatus]int `json:"pools_by_status"`
	AverageAPY       float64            `json:"average_apy"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// EpochCloseResult reports a closeEpoch transaction and the status written back
type EpochCloseResult struct {
	PoolId      string     `json:"pool_id"`
	TxHash      string     `json:"tx_hash"`
	BlockNumber uint64     `json:"block_number"`
	Forced      bool       `json:"forced"`
	Status      PoolStatus `json:"status"`
}
