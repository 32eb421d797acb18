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

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/pool"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

var (
	ErrTxReverted     = errors.New("transaction reverted")
	ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")
	ErrUnknownStatus  = pool.ErrUnknownStatus
	ErrNoOperatorKey  = errors.New("operator private key not configured")
	ErrMissingAddress = errors.New("pool has no on-chain address")
	ErrNotPoolDeposit = errors.New("transaction is not a deposit into this pool")
)

// backend is the subset of ethclient.Client used here.
type backend interface {
	ethereum.ContractCaller
	ethereum.TransactionReader
	ethereum.TransactionSender
	ethereum.GasPricer
	ethereum.GasEstimator
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

type Client struct {
	backend   backend
	closer    func()
	chainId   *big.Int
	cfg       models.ChainConfig
	contracts *models.ContractsConfig
	decimals  sync.Map
	operator  *Transactor
}

// Dial connects to the configured RPC endpoint and verifies the chain id
// against the contracts file.
func Dial(ctx context.Context, cfg models.ChainConfig, contracts *models.ContractsConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("chain rpc url cannot be empty")
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain rpc: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)

	chainId, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if contracts != nil && contracts.ChainId != 0 && chainId.Int64() != contracts.ChainId {
		eth.Close()
		return nil, fmt.Errorf("rpc chain id %s does not match contracts file chain id %d", chainId, contracts.ChainId)
	}

	client := newClient(eth, chainId, cfg, contracts)
	client.closer = eth.Close

	if cfg.OperatorPrivateKey != "" {
		operator, err := NewTransactor(client, cfg.OperatorPrivateKey)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("invalid operator key: %w", err)
		}
		client.operator = operator
		zap.L().Info("Operator key loaded", zap.String("operator", operator.Address()))
	}

	zap.L().Info("Chain client initialized",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainId.String()))

	return client, nil
}

func newClient(b backend, chainId *big.Int, cfg models.ChainConfig, contracts *models.ContractsConfig) *Client {
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 3 * time.Second
	}
	return &Client{backend: b, chainId: chainId, cfg: cfg, contracts: contracts}
}

func createCustomHttpClient() (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) ChainId() *big.Int {
	return new(big.Int).Set(c.chainId)
}

// Operator returns the platform transactor, or nil when no operator key is configured.
func (c *Client) Operator() *Transactor {
	return c.operator
}

func (c *Client) call(ctx context.Context, contract abi.ABI, to, method string, args ...any) ([]any, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid contract address %q for %s", to, method)
	}

	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	addr := common.HexToAddress(to)
	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, to, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty result from %s on %s", method, to)
	}

	values, err := contract.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

// Decimals resolves the token precision from the contracts file, falling back
// to the token's decimals() view. Results are cached per address.
func (c *Client) Decimals(ctx context.Context, assetAddress, symbol string) (int32, error) {
	key := strings.ToLower(assetAddress)
	if key == "" {
		key = "symbol:" + strings.ToUpper(symbol)
	}
	if v, ok := c.decimals.Load(key); ok {
		return v.(int32), nil
	}

	if c.contracts != nil {
		for _, asset := range c.contracts.Assets {
			byAddress := assetAddress != "" && strings.EqualFold(asset.Address, assetAddress)
			bySymbol := assetAddress == "" && strings.EqualFold(asset.Symbol, symbol)
			if byAddress || bySymbol {
				c.decimals.Store(key, asset.Decimals)
				return asset.Decimals, nil
			}
		}
	}

	values, err := c.call(ctx, erc20ABI, assetAddress, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", values[0])
	}

	c.decimals.Store(key, int32(decimals))
	return int32(decimals), nil
}

// ReadPoolState reads the manager's record for a pool and maps it field by field.
func (c *Client) ReadPoolState(ctx context.Context, p *models.Pool) (*models.OnchainPoolState, error) {
	if p.ManagerAddress == "" || p.PoolAddress == "" {
		return nil, fmt.Errorf("pool %s: %w", p.Id, ErrMissingAddress)
	}

	decimals, err := c.Decimals(ctx, p.AssetAddress, p.AssetSymbol)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve asset decimals: %w", err)
	}

	values, err := c.call(ctx, managerABI, p.ManagerAddress, "pools", common.HexToAddress(p.PoolAddress))
	if err != nil {
		return nil, err
	}
	return decodePoolRecord(values, decimals)
}

func decodePoolRecord(values []any, decimals int32) (*models.OnchainPoolState, error) {
	if len(values) != 6 {
		return nil, fmt.Errorf("pools() returned %d values, want 6", len(values))
	}

	statusCode, ok := values[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("unexpected status type %T", values[0])
	}
	bigs := make([]*big.Int, 5)
	for i := range bigs {
		v, ok := values[i+1].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected type %T at position %d", values[i+1], i+1)
		}
		bigs[i] = v
	}

	status, err := pool.StatusFromCode(statusCode)
	if err != nil {
		return nil, err
	}

	return &models.OnchainPoolState{
		StatusCode:     statusCode,
		Status:         status,
		EpochEndTime:   time.Unix(bigs[0].Int64(), 0).UTC(),
		MaturityDate:   time.Unix(bigs[1].Int64(), 0).UTC(),
		TotalRaised:    FromBaseUnits(bigs[2], decimals),
		ActualInvested: FromBaseUnits(bigs[3], decimals),
		TotalInvestors: bigs[4].Int64(),
	}, nil
}

// Allowance returns how many base units spender may pull from owner.
func (c *Client) Allowance(ctx context.Context, asset, owner, spender string) (*big.Int, error) {
	values, err := c.call(ctx, erc20ABI, asset, "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", values[0])
	}
	return allowance, nil
}

// ActivePools lists the pool addresses the registry reports as active.
func (c *Client) ActivePools(ctx context.Context) ([]string, error) {
	if c.contracts == nil || c.contracts.Registry == "" {
		return nil, nil
	}
	values, err := c.call(ctx, registryABI, c.contracts.Registry, "getActivePools")
	if err != nil {
		return nil, err
	}
	addrs, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected getActivePools type %T", values[0])
	}

	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = strings.ToLower(a.Hex())
	}
	return out, nil
}

// TotalPoolsCreated returns the factory's lifetime pool count.
func (c *Client) TotalPoolsCreated(ctx context.Context) (uint64, error) {
	if c.contracts == nil || c.contracts.Factory == "" {
		return 0, fmt.Errorf("factory address not configured")
	}
	values, err := c.call(ctx, factoryABI, c.contracts.Factory, "totalPoolsCreated")
	if err != nil {
		return 0, err
	}
	total, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected totalPoolsCreated type %T", values[0])
	}
	return total.Uint64(), nil
}

// WaitForReceipt polls until the transaction is mined or ctx ends. A reverted
// receipt is returned together with ErrTxReverted.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("tx %s: %w", hash.Hex(), ErrTxReverted)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			zap.L().Warn("Receipt lookup failed, retrying", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("tx %s: %w", hash.Hex(), ErrReceiptTimeout)
		case <-ticker.C:
		}
	}
}

// VerifyDeposit waits for a user-submitted deposit to be mined and decodes the
// pool's Deposit event from its logs.
func (c *Client) VerifyDeposit(ctx context.Context, p *models.Pool, txHash string) (*models.DepositReceipt, error) {
	if p.PoolAddress == "" {
		return nil, fmt.Errorf("pool %s: %w", p.Id, ErrMissingAddress)
	}
	hash := common.HexToHash(txHash)

	if c.cfg.DepositReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DepositReceiptTimeout)
		defer cancel()
	}

	receipt, err := c.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}

	decimals, err := c.Decimals(ctx, p.AssetAddress, p.AssetSymbol)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve asset decimals: %w", err)
	}

	result := c.depositReceipt(receipt, p, decimals)

	tx, _, err := c.backend.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("unable to load deposit transaction %s: %w", txHash, err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(c.chainId), tx)
	if err != nil {
		return nil, fmt.Errorf("unable to recover sender of %s: %w", txHash, err)
	}
	result.Sender = strings.ToLower(sender.Hex())
	if tx.To() != nil {
		result.To = strings.ToLower(tx.To().Hex())
	}

	// Without our own Deposit log the tx must at least target the pool and
	// must not carry a Deposit from some other vault.
	if !result.EventFound {
		pool := common.HexToAddress(p.PoolAddress)
		if tx.To() == nil || *tx.To() != pool || HasForeignDeposit(receipt.Logs, pool) {
			return nil, fmt.Errorf("tx %s to %s: %w", txHash, result.To, ErrNotPoolDeposit)
		}
	}

	return result, nil
}

func (c *Client) depositReceipt(receipt *types.Receipt, p *models.Pool, decimals int32) *models.DepositReceipt {
	result := &models.DepositReceipt{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}

	event, err := ParseDepositEvent(receipt.Logs, common.HexToAddress(p.PoolAddress))
	if err != nil {
		zap.L().Warn("Unable to decode Deposit event", zap.String("tx_hash", result.TxHash), zap.Error(err))
	}
	if event != nil {
		result.EventFound = true
		result.Owner = strings.ToLower(event.Owner.Hex())
		result.Assets = FromBaseUnits(event.Assets, decimals)
		result.Shares = FromBaseUnits(event.Shares, decimals)
	}
	return result
}

// CloseEpoch sends closeEpoch(pool) from the operator key and waits for it to be mined.
func (c *Client) CloseEpoch(ctx context.Context, p *models.Pool) (*models.TxReceipt, error) {
	if c.operator == nil {
		return nil, ErrNoOperatorKey
	}
	if p.ManagerAddress == "" || p.PoolAddress == "" {
		return nil, fmt.Errorf("pool %s: %w", p.Id, ErrMissingAddress)
	}
	return c.operator.CloseEpoch(ctx, p.ManagerAddress, p.PoolAddress)
}
