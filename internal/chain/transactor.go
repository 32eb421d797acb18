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
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"piron-pools-go/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Transactor signs and submits contract calls from a single key.
type Transactor struct {
	client *Client
	key    *ecdsa.PrivateKey
	from   common.Address
}

func NewTransactor(client *Client, privateKeyHex string) (*Transactor, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key")
	}

	return &Transactor{
		client: client,
		key:    key,
		from:   crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// Address returns the lowercase hex address of the signing key.
func (t *Transactor) Address() string {
	return strings.ToLower(t.from.Hex())
}

func (t *Transactor) send(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	b := t.client.backend

	nonce, err := b.PendingNonceAt(ctx, t.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := b.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := b.EstimateGas(ctx, ethereum.CallMsg{From: t.from, To: &to, Data: data})
	if err != nil {
		zap.L().Warn("Gas estimation failed, using configured limit",
			zap.String("to", to.Hex()),
			zap.Uint64("gas_limit", t.client.cfg.GasLimit),
			zap.Error(err))
		gasLimit = t.client.cfg.GasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(t.client.chainId), t.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := b.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	zap.L().Info("Transaction sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("from", t.from.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit))

	return signedTx, nil
}

func (t *Transactor) sendAndWait(ctx context.Context, to string, data []byte, label string) (*types.Receipt, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid contract address %q for %s", to, label)
	}

	tx, err := t.send(ctx, common.HexToAddress(to), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	receipt, err := t.client.WaitForReceipt(ctx, tx.Hash())
	if err != nil {
		return receipt, fmt.Errorf("%s: %w", label, err)
	}

	zap.L().Info("Transaction confirmed",
		zap.String("call", label),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return receipt, nil
}

func toTxReceipt(r *types.Receipt) *models.TxReceipt {
	return &models.TxReceipt{
		TxHash:      r.TxHash.Hex(),
		BlockNumber: r.BlockNumber.Uint64(),
		GasUsed:     r.GasUsed,
	}
}

func (t *Transactor) CloseEpoch(ctx context.Context, manager, pool string) (*models.TxReceipt, error) {
	data, err := managerABI.Pack("closeEpoch", common.HexToAddress(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to pack closeEpoch: %w", err)
	}

	receipt, err := t.sendAndWait(ctx, manager, data, "closeEpoch")
	if err != nil {
		return nil, err
	}
	return toTxReceipt(receipt), nil
}

func (t *Transactor) Approve(ctx context.Context, asset, spender string, amount *big.Int) (*models.TxReceipt, error) {
	data, err := erc20ABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}

	receipt, err := t.sendAndWait(ctx, asset, data, "approve")
	if err != nil {
		return nil, err
	}
	return toTxReceipt(receipt), nil
}

// DepositWithApproval approves the pool for the full amount when the current
// allowance is too small, then deposits amount with the signer as receiver.
// Both transactions share the client's DepositReceiptTimeout.
func (t *Transactor) DepositWithApproval(ctx context.Context, p *models.Pool, amount decimal.Decimal) (*models.DepositReceipt, error) {
	if p.PoolAddress == "" || p.AssetAddress == "" {
		return nil, fmt.Errorf("pool %s: %w", p.Id, ErrMissingAddress)
	}

	if timeout := t.client.cfg.DepositReceiptTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	decimals, err := t.client.Decimals(ctx, p.AssetAddress, p.AssetSymbol)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve asset decimals: %w", err)
	}
	assets := ToBaseUnits(amount, decimals)
	if assets.Sign() <= 0 {
		return nil, fmt.Errorf("deposit amount %s is below token precision", amount)
	}

	allowance, err := t.client.Allowance(ctx, p.AssetAddress, t.Address(), p.PoolAddress)
	if err != nil {
		return nil, fmt.Errorf("unable to read allowance: %w", err)
	}

	if allowance.Cmp(assets) < 0 {
		zap.L().Info("Allowance below deposit amount, approving",
			zap.String("pool", p.PoolAddress),
			zap.String("allowance", allowance.String()),
			zap.String("required", assets.String()))

		if _, err := t.Approve(ctx, p.AssetAddress, p.PoolAddress, assets); err != nil {
			return nil, err
		}
	}

	data, err := poolABI.Pack("deposit", assets, t.from)
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit: %w", err)
	}

	receipt, err := t.sendAndWait(ctx, p.PoolAddress, data, "deposit")
	if err != nil {
		return nil, err
	}

	result := t.client.depositReceipt(receipt, p, decimals)
	result.Sender = t.Address()
	result.To = strings.ToLower(p.PoolAddress)
	return result, nil
}
