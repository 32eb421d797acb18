package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Manager contract: epoch control and the per-pool accounting record.
const managerABIJSON = `[
	{
		"inputs": [{"name": "pool", "type": "address"}],
		"name": "closeEpoch",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "pool", "type": "address"}],
		"name": "pools",
		"outputs": [
			{"name": "status", "type": "uint8"},
			{"name": "epochEndTime", "type": "uint256"},
			{"name": "maturityDate", "type": "uint256"},
			{"name": "totalRaised", "type": "uint256"},
			{"name": "actualInvested", "type": "uint256"},
			{"name": "totalInvestors", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Pool vault: ERC-4626 style deposit entry point and share accounting.
const poolABIJSON = `[
	{
		"inputs": [
			{"name": "assets", "type": "uint256"},
			{"name": "receiver", "type": "address"}
		],
		"name": "deposit",
		"outputs": [{"name": "shares", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalAssets",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalSupply",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "receiver", "type": "address"}],
		"name": "maxDeposit",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "asset",
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "sender", "type": "address"},
			{"indexed": true, "name": "owner", "type": "address"},
			{"indexed": false, "name": "assets", "type": "uint256"},
			{"indexed": false, "name": "shares", "type": "uint256"}
		],
		"name": "Deposit",
		"type": "event"
	}
]`

const erc20ABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "_owner", "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

const registryABIJSON = `[
	{
		"inputs": [],
		"name": "getActivePools",
		"outputs": [{"name": "", "type": "address[]"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const factoryABIJSON = `[
	{
		"inputs": [],
		"name": "totalPoolsCreated",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	managerABI  = mustParseABI("manager", managerABIJSON)
	poolABI     = mustParseABI("pool", poolABIJSON)
	erc20ABI    = mustParseABI("erc20", erc20ABIJSON)
	registryABI = mustParseABI("registry", registryABIJSON)
	factoryABI  = mustParseABI("factory", factoryABIJSON)
)

func mustParseABI(name, definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid %s ABI: %v", name, err))
	}
	return parsed
}
