package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DepositEvent is a decoded pool Deposit log.
type DepositEvent struct {
	Sender common.Address
	Owner  common.Address
	Assets *big.Int
	Shares *big.Int
}

// ParseDepositEvent returns the first Deposit event emitted by pool, or nil
// when the logs contain none.
func ParseDepositEvent(logs []*types.Log, pool common.Address) (*DepositEvent, error) {
	event := poolABI.Events["Deposit"]

	for _, lg := range logs {
		if lg == nil || lg.Address != pool || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		if len(lg.Topics) < 3 {
			return nil, fmt.Errorf("deposit log has %d topics, want 3", len(lg.Topics))
		}

		var data struct {
			Assets *big.Int
			Shares *big.Int
		}
		if err := poolABI.UnpackIntoInterface(&data, "Deposit", lg.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack Deposit event: %w", err)
		}

		return &DepositEvent{
			Sender: common.BytesToAddress(lg.Topics[1].Bytes()),
			Owner:  common.BytesToAddress(lg.Topics[2].Bytes()),
			Assets: data.Assets,
			Shares: data.Shares,
		}, nil
	}
	return nil, nil
}

// HasForeignDeposit reports whether logs contain a Deposit event emitted by
// a contract other than pool.
func HasForeignDeposit(logs []*types.Log, pool common.Address) bool {
	id := poolABI.Events["Deposit"].ID
	for _, lg := range logs {
		if lg != nil && lg.Address != pool && len(lg.Topics) > 0 && lg.Topics[0] == id {
			return true
		}
	}
	return false
}
