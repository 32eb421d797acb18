package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"piron-pools-go/internal/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// LoadContractsConfig reads the deployed contract addresses for one network.
// Relative paths resolve against the working directory.
func LoadContractsConfig(contractsFile string) (*models.ContractsConfig, error) {
	contractsPath := contractsFile
	if !filepath.IsAbs(contractsFile) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		contractsPath = filepath.Join(wd, contractsFile)
	}

	data, err := os.ReadFile(contractsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", contractsFile, err)
	}
	return ParseContractsConfig(data)
}

func ParseContractsConfig(data []byte) (*models.ContractsConfig, error) {
	var contracts models.ContractsConfig
	if err := yaml.Unmarshal(data, &contracts); err != nil {
		return nil, fmt.Errorf("unable to parse contracts file: %w", err)
	}

	if contracts.ChainId <= 0 {
		return nil, fmt.Errorf("chain_id must be positive")
	}
	if contracts.Manager == "" {
		return nil, fmt.Errorf("manager address is required")
	}

	named := map[string]*string{
		"factory":  &contracts.Factory,
		"registry": &contracts.Registry,
		"manager":  &contracts.Manager,
	}
	for name, addr := range named {
		if *addr == "" {
			continue
		}
		if !ethcommon.IsHexAddress(*addr) {
			return nil, fmt.Errorf("%s address %q is not a valid address", name, *addr)
		}
		*addr = strings.ToLower(*addr)
	}

	seen := make(map[string]bool, len(contracts.Assets))
	for i := range contracts.Assets {
		asset := &contracts.Assets[i]
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if !ethcommon.IsHexAddress(asset.Address) {
			return nil, fmt.Errorf("asset %s has invalid address %q", asset.Symbol, asset.Address)
		}
		if asset.Decimals < 0 || asset.Decimals > 36 {
			return nil, fmt.Errorf("asset %s has invalid decimals %d", asset.Symbol, asset.Decimals)
		}
		asset.Symbol = strings.ToUpper(asset.Symbol)
		asset.Address = strings.ToLower(asset.Address)
		if seen[asset.Symbol] {
			return nil, fmt.Errorf("asset %s listed twice", asset.Symbol)
		}
		seen[asset.Symbol] = true
	}

	return &contracts, nil
}
