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
	"strings"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrInvalidTxHash  = errors.New("invalid transaction hash")
	ErrInvalidAmount  = errors.New("deposit amount must be positive")
	ErrSenderMismatch = errors.New("deposit was not made from the user's wallet")
	ErrWalletRequired = errors.New("a linked wallet is required to record deposits")
	ErrNotPoolDeposit = errors.New("transaction was not sent to the pool")
	ErrEpochNotEnded  = errors.New("epoch has not ended")
	ErrEpochClosed    = errors.New("pool is no longer funding")
)

// Chain is the on-chain view the reconciler needs. *chain.Client satisfies it.
type Chain interface {
	ReadPoolState(ctx context.Context, p *models.Pool) (*models.OnchainPoolState, error)
	VerifyDeposit(ctx context.Context, p *models.Pool, txHash string) (*models.DepositReceipt, error)
	CloseEpoch(ctx context.Context, p *models.Pool) (*models.TxReceipt, error)
}

// Registry lists the pool addresses the on-chain registry considers active.
type Registry interface {
	ActivePools(ctx context.Context) ([]string, error)
}

// Reconciler keeps pool records in step with the contracts: it records verified
// deposits, mirrors manager state into the store and closes funding epochs.
type Reconciler struct {
	chain     Chain
	dbService store.PoolStore
	now       func() time.Time
}

func NewReconciler(chain Chain, dbService store.PoolStore) *Reconciler {
	return &Reconciler{
		chain:     chain,
		dbService: dbService,
		now:       time.Now,
	}
}

func normalizeTxHash(txHash string) (string, bool) {
	txHash = strings.ToLower(strings.TrimSpace(txHash))
	b, err := hexutil.Decode(txHash)
	if err != nil || len(b) != common.HashLength {
		return txHash, false
	}
	return txHash, true
}

func hasChainAddresses(p *models.Pool) bool {
	return p.PoolAddress != "" && p.ManagerAddress != ""
}

func shortId(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
