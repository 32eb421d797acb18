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

// ContractsConfig lists the deployed contract addresses for one network
type ContractsConfig struct {
	Network  string        `yaml:"network"`
	ChainId  int64         `yaml:"chain_id"`
	Factory  string        `yaml:"factory"`
	Registry string        `yaml:"registry"`
	Manager  string        `yaml:"manager"`
	Assets   []AssetConfig `yaml:"assets"`
}

// AssetConfig describes a stablecoin accepted by the pools
type AssetConfig struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
}

// OnchainPoolState is the manager's per-pool record, mapped field by field from the
// contract's return tuple and scaled to asset units.
type OnchainPoolState struct {
	StatusCode     uint8
	Status         PoolStatus
	EpochEndTime   time.Time
	MaturityDate   time.Time
	TotalRaised    decimal.Decimal
	ActualInvested decimal.Decimal
	TotalInvestors int64
}

// DepositReceipt is a confirmed deposit transaction as observed on chain.
// Sender is the transaction signer; Owner, Assets and Shares come from the
// pool's Deposit event and are empty when no event could be decoded.
type DepositReceipt struct {
	TxHash      string
	BlockNumber uint64
	Sender      string
	To          string
	Owner       string
	Assets      decimal.Decimal
	Shares      decimal.Decimal
	EventFound  bool
}

// TxReceipt identifies a mined transaction sent by the platform.
type TxReceipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}
