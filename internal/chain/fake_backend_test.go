package chain

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend answers contract calls by 4-byte selector and mines every sent
// transaction on the first receipt lookup.
type fakeBackend struct {
	mu            sync.Mutex
	calls         map[string][]byte
	receipts      map[common.Hash]*types.Receipt
	receiptMisses int
	sent          []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:    make(map[string][]byte),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeBackend) onCall(selector []byte, result []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[hex.EncodeToString(selector)] = result
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(msg.Data) < 4 {
		return nil, nil
	}
	return f.calls[hex.EncodeToString(msg.Data[:4])], nil
}

func (f *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			return tx, false, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptMisses > 0 {
		f.receiptMisses--
		return nil, ethereum.NotFound
	}
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			return &types.Receipt{
				Status:      types.ReceiptStatusSuccessful,
				TxHash:      hash,
				BlockNumber: big.NewInt(42),
				GasUsed:     21000,
			}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 90_000, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) sentTransactions() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}
