// Node configuration loading.
//
// The declarative parts (chains, triggers, OIS definitions) come from a
// YAML file; secrets come from the environment. Load() then Validate()
// must both succeed before a coordinator run starts — a validation
// failure is run-fatal.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything a coordinator run needs
type Config struct {
	NodeSettings NodeSettings `yaml:"nodeSettings"`
	Triggers     Triggers     `yaml:"triggers"`
	OIS          []OIS        `yaml:"ois"`

	// MasterKeyMnemonic is sourced from the environment, never the file
	MasterKeyMnemonic string `yaml:"-"`
}

// NodeSettings mirrors the nodeSettings block of the config file
type NodeSettings struct {
	Chains        []ChainConfig `yaml:"chains"`
	LogFormat     string        `yaml:"logFormat"` // "plain" or "json"
	LogLevel      string        `yaml:"logLevel"`
	CloudProvider string        `yaml:"cloudProvider"`
	Region        string        `yaml:"region"`
	Stage         string        `yaml:"stage"`
	NodeVersion   string        `yaml:"nodeVersion"`
}

// ChainConfig describes one EVM chain the node serves
type ChainConfig struct {
	Type      string            `yaml:"type"` // only "evm"
	ID        int64             `yaml:"id"`
	Contracts ChainContracts    `yaml:"contracts"`
	Providers []ChainProvider   `yaml:"providers"`
	Admin     string            `yaml:"providerAdminForRecordCreation"`
	Authorizers []string        `yaml:"authorizers"`

	// BlockHistoryLimit bounds the log fetch window in blocks
	BlockHistoryLimit uint64 `yaml:"blockHistoryLimit"`
	// MinConfirmations is subtracted from the current block before fetching
	MinConfirmations uint64 `yaml:"minConfirmations"`
	// IgnoreBlockedRequestsAfterBlocks ages out Blocked requests
	IgnoreBlockedRequestsAfterBlocks uint64 `yaml:"ignoreBlockedRequestsAfterBlocks"`
}

// ChainContracts are the deployed contract addresses on a chain
type ChainContracts struct {
	Airnode     string `yaml:"Airnode"`
	Convenience string `yaml:"Convenience"`
}

// ChainProvider is a JSON-RPC endpoint backing a chain
type ChainProvider struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Triggers lists the requests the node agrees to serve
type Triggers struct {
	Requests []RequestTrigger `yaml:"requests"`
}

// RequestTrigger binds a chain-registered endpoint to an OIS endpoint
type RequestTrigger struct {
	EndpointID   string `yaml:"endpointId"`
	OISTitle     string `yaml:"oisTitle"`
	EndpointName string `yaml:"endpointName"`
}

const (
	defaultBlockHistoryLimit = 600
	defaultIgnoreBlockedRequestsAfterBlocks = 20
)

// Load reads the config file named by CONFIG_PATH (default config.yaml)
// and merges environment secrets.
//
// Recognized environment variables:
//   - CONFIG_PATH
//   - MASTER_KEY_MNEMONIC (required)
//   - LOG_LEVEL (overrides nodeSettings.logLevel)
func Load() (*Config, error) {
	path := getEnv("CONFIG_PATH", "config.yaml")

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.MasterKeyMnemonic = getEnv("MASTER_KEY_MNEMONIC", "")
	if lvl := getEnv("LOG_LEVEL", ""); lvl != "" {
		cfg.NodeSettings.LogLevel = lvl
	}

	for i := range cfg.NodeSettings.Chains {
		chain := &cfg.NodeSettings.Chains[i]
		if chain.BlockHistoryLimit == 0 {
			chain.BlockHistoryLimit = defaultBlockHistoryLimit
		}
		if chain.IgnoreBlockedRequestsAfterBlocks == 0 {
			chain.IgnoreBlockedRequestsAfterBlocks = defaultIgnoreBlockedRequestsAfterBlocks
		}
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
// It must be called after Load() before starting a run.
func (c *Config) Validate() error {
	var errors []string

	if c.MasterKeyMnemonic == "" {
		errors = append(errors, "MASTER_KEY_MNEMONIC is required but not set")
	}

	if len(c.NodeSettings.Chains) == 0 {
		errors = append(errors, "nodeSettings.chains must list at least one chain")
	}
	for _, chain := range c.NodeSettings.Chains {
		if chain.Type != "evm" {
			errors = append(errors, fmt.Sprintf("chain %d: unsupported type %q (only evm)", chain.ID, chain.Type))
		}
		if chain.Contracts.Airnode == "" || chain.Contracts.Convenience == "" {
			errors = append(errors, fmt.Sprintf("chain %d: contracts.Airnode and contracts.Convenience are required", chain.ID))
		}
		if len(chain.Providers) == 0 {
			errors = append(errors, fmt.Sprintf("chain %d: at least one provider is required", chain.ID))
		}
		for _, p := range chain.Providers {
			if p.URL == "" {
				errors = append(errors, fmt.Sprintf("chain %d provider %q: url is required", chain.ID, p.Name))
			}
		}
	}

	switch c.NodeSettings.LogFormat {
	case "", "plain", "json":
	default:
		errors = append(errors, fmt.Sprintf("nodeSettings.logFormat %q must be plain or json", c.NodeSettings.LogFormat))
	}

	for _, trigger := range c.Triggers.Requests {
		if trigger.EndpointID == "" {
			errors = append(errors, "triggers.requests: endpointId is required")
			continue
		}
		if _, _, err := c.FindEndpoint(trigger.OISTitle, trigger.EndpointName); err != nil {
			errors = append(errors, fmt.Sprintf("trigger %s: %v", trigger.EndpointID, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// FindTrigger returns the trigger serving endpointId, if any
func (c *Config) FindTrigger(endpointID string) (RequestTrigger, bool) {
	for _, t := range c.Triggers.Requests {
		if strings.EqualFold(t.EndpointID, endpointID) {
			return t, true
		}
	}
	return RequestTrigger{}, false
}

// FindEndpoint resolves an OIS endpoint by OIS title and endpoint name
func (c *Config) FindEndpoint(oisTitle, endpointName string) (*OIS, *Endpoint, error) {
	for i := range c.OIS {
		if c.OIS[i].Title != oisTitle {
			continue
		}
		for j := range c.OIS[i].Endpoints {
			if c.OIS[i].Endpoints[j].Name == endpointName {
				return &c.OIS[i], &c.OIS[i].Endpoints[j], nil
			}
		}
		return nil, nil, fmt.Errorf("endpoint %q not found in OIS %q", endpointName, oisTitle)
	}
	return nil, nil, fmt.Errorf("OIS %q not found", oisTitle)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
