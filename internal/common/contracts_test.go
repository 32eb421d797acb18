package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validContracts = `
network: base-sepolia
chain_id: 84532
factory: "0x1000000000000000000000000000000000000001"
registry: "0x1000000000000000000000000000000000000002"
manager: "0xABCDEF0000000000000000000000000000000003"
assets:
  - symbol: usdc
    address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
    decimals: 6
`

func TestParseContractsConfig(t *testing.T) {
	contracts, err := ParseContractsConfig([]byte(validContracts))
	if err != nil {
		t.Fatalf("ParseContractsConfig failed: %v", err)
	}
	if contracts.ChainId != 84532 || contracts.Network != "base-sepolia" {
		t.Errorf("ChainId/Network = %d/%s", contracts.ChainId, contracts.Network)
	}
	if contracts.Manager != "0xabcdef0000000000000000000000000000000003" {
		t.Errorf("Manager = %s; want lowercase", contracts.Manager)
	}
	if len(contracts.Assets) != 1 || contracts.Assets[0].Symbol != "USDC" || contracts.Assets[0].Decimals != 6 {
		t.Errorf("Assets = %+v", contracts.Assets)
	}
}

func TestParseContractsConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{"missing chain id", func(s string) string { return strings.Replace(s, "chain_id: 84532", "chain_id: 0", 1) }, "chain_id"},
		{"missing manager", func(s string) string {
			return strings.Replace(s, `manager: "0xABCDEF0000000000000000000000000000000003"`, "", 1)
		}, "manager"},
		{"bad registry", func(s string) string {
			return strings.Replace(s, "0x1000000000000000000000000000000000000002", "0x12", 1)
		}, "registry"},
		{"bad decimals", func(s string) string { return strings.Replace(s, "decimals: 6", "decimals: 99", 1) }, "decimals"},
		{"not yaml", func(string) string { return "chain_id: [" }, "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContractsConfig([]byte(tt.mutate(validContracts)))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v; want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadContractsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	if err := os.WriteFile(path, []byte(validContracts), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadContractsConfig(path); err != nil {
		t.Fatalf("LoadContractsConfig failed: %v", err)
	}
	if _, err := LoadContractsConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
