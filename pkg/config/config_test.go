package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `
nodeSettings:
  logFormat: json
  nodeVersion: "0.1.0"
  chains:
    - type: evm
      id: 31337
      contracts:
        Airnode: "0x197F3826040dF832481f835652c290aC7c41f073"
        Convenience: "0x2393737d287c555d148012270Ce4567ABb1ee95C"
      providerAdminForRecordCreation: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
      providers:
        - name: evm-local
          url: "http://127.0.0.1:8545"
triggers:
  requests:
    - endpointId: "0x13dea3311fe0d6b84f4daeab831befbc49e19e6494c41e9e065a09c3c68f43b6"
      oisTitle: "currency-converter"
      endpointName: "convertToUSD"
ois:
  - oisFormat: "1.0.0"
    version: "1.2.3"
    title: "currency-converter"
    apiSpecifications:
      servers:
        - url: "https://api.example.com"
    endpoints:
      - name: "convertToUSD"
        operation:
          path: "/convert"
          method: "get"
        reservedParameters:
          - name: "_type"
            fixed: "int256"
        parameters:
          - name: "from"
            required: true
            operationParameter:
              in: "query"
              name: "from"
`

func loadTestConfig(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("MASTER_KEY_MNEMONIC", "test test test test test test test test test test test junk")
	return Load()
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := loadTestConfig(t, testConfigYAML)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	chain := cfg.NodeSettings.Chains[0]
	if chain.ID != 31337 || chain.Type != "evm" {
		t.Fatalf("chain parsed incorrectly: %+v", chain)
	}
	if chain.BlockHistoryLimit != defaultBlockHistoryLimit {
		t.Fatalf("got blockHistoryLimit %d, want default %d", chain.BlockHistoryLimit, defaultBlockHistoryLimit)
	}
	if chain.IgnoreBlockedRequestsAfterBlocks != defaultIgnoreBlockedRequestsAfterBlocks {
		t.Fatal("ignoreBlockedRequestsAfterBlocks default not applied")
	}

	trigger, found := cfg.FindTrigger("0x13dea3311fe0d6b84f4daeab831befbc49e19e6494c41e9e065a09c3c68f43b6")
	if !found || trigger.OISTitle != "currency-converter" {
		t.Fatalf("trigger lookup failed: %+v", trigger)
	}

	ois, endpoint, err := cfg.FindEndpoint("currency-converter", "convertToUSD")
	if err != nil {
		t.Fatalf("endpoint lookup failed: %v", err)
	}
	if ois.Title != "currency-converter" || endpoint.Name != "convertToUSD" {
		t.Fatal("endpoint lookup returned the wrong entries")
	}
}

func TestValidate_MissingMnemonic(t *testing.T) {
	cfg, err := loadTestConfig(t, testConfigYAML)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg.MasterKeyMnemonic = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a missing mnemonic to fail validation")
	}
}

func TestValidate_UnsupportedChainType(t *testing.T) {
	cfg, err := loadTestConfig(t, testConfigYAML)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg.NodeSettings.Chains[0].Type = "solana"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a non-evm chain to fail validation")
	}
}

func TestValidate_TriggerWithoutEndpoint(t *testing.T) {
	cfg, err := loadTestConfig(t, testConfigYAML)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg.Triggers.Requests[0].EndpointName = "doesNotExist"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a dangling trigger to fail validation")
	}
}

func TestFindTrigger_IsCaseInsensitive(t *testing.T) {
	cfg, err := loadTestConfig(t, testConfigYAML)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	upper := "0x13DEA3311FE0D6B84F4DAEAB831BEFBC49E19E6494C41E9E065A09C3C68F43B6"
	if _, found := cfg.FindTrigger(upper); !found {
		t.Fatal("endpoint id comparison should ignore hex casing")
	}
}

func TestSecurityEnvName(t *testing.T) {
	got := SecurityEnvName("Currency Converter", "api-key")
	if got != "CURRENCY_CONVERTER_API_KEY" {
		t.Fatalf("got %q", got)
	}
}
