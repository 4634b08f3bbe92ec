// Package config loads and validates the process-wide facade configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the process-wide configuration. Token identities and the router
// address are fixed at startup and immutable afterwards.
type Config struct {
	// Chain and network settings
	ChainID     uint64 `json:"chain_id"`
	RPCEndpoint string `json:"rpc_endpoint"`

	// Swap settlement addresses
	InputToken  string `json:"input_token"`
	OutputToken string `json:"output_token"`
	Router      string `json:"router"`

	// SwapDeadline is the validity window applied to swaps submitted without
	// an explicit deadline.
	SwapDeadline time.Duration `json:"swap_deadline"`

	// NetworkTimeout bounds individual RPC calls.
	NetworkTimeout time.Duration `json:"network_timeout"`

	// RPCRateLimit throttles RPC traffic to the node.
	RPCRateLimit RateLimitConfig `json:"rpc_rate_limit"`

	// Feature flags
	PrometheusEnabled  bool   `json:"prometheus_enabled"`
	PrometheusEndpoint string `json:"prometheus_endpoint"`
}

// RateLimitConfig throttles outbound request rates.
type RateLimitConfig struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	BurstSize         int           `json:"burst_size"`
	WaitTimeout       time.Duration `json:"wait_timeout"`
}

// ValidateConfig checks the configuration and reports every violation at
// once.
func (c *Config) ValidateConfig() error {
	var errs []string

	if c.ChainID == 0 {
		errs = append(errs, "chain_id must be specified")
	}
	if c.RPCEndpoint == "" {
		errs = append(errs, "rpc_endpoint must be specified")
	}
	if !common.IsHexAddress(c.InputToken) {
		errs = append(errs, "input_token must be a hex address")
	}
	if !common.IsHexAddress(c.OutputToken) {
		errs = append(errs, "output_token must be a hex address")
	}
	if common.IsHexAddress(c.InputToken) && common.IsHexAddress(c.OutputToken) &&
		common.HexToAddress(c.InputToken) == common.HexToAddress(c.OutputToken) {
		errs = append(errs, "input_token and output_token must differ")
	}
	if !common.IsHexAddress(c.Router) {
		errs = append(errs, "router must be a hex address")
	}
	if c.SwapDeadline <= 0 {
		errs = append(errs, "swap_deadline must be positive")
	}
	if err := c.RPCRateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("RPC rate limit error: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the rate limit settings.
func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	if r.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}
	return nil
}

// InputTokenAddress returns the parsed input token address.
func (c *Config) InputTokenAddress() common.Address {
	return common.HexToAddress(c.InputToken)
}

// OutputTokenAddress returns the parsed output token address.
func (c *Config) OutputTokenAddress() common.Address {
	return common.HexToAddress(c.OutputToken)
}

// RouterAddress returns the parsed router address.
func (c *Config) RouterAddress() common.Address {
	return common.HexToAddress(c.Router)
}

// LoadConfig reads and validates a config file, defaulting to
// $HOME/.tokenswap.json.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".tokenswap.json")
	}

	file, err := os.Open(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := NewConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewConfig returns a configuration with conservative defaults. Addresses
// have no defaults and must come from the config file or environment.
func NewConfig() *Config {
	return &Config{
		ChainID:        1,
		RPCEndpoint:    "http://localhost:8545",
		SwapDeadline:   30 * time.Second,
		NetworkTimeout: 5 * time.Second,
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         100,
			WaitTimeout:       time.Second,
		},
	}
}
