package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.InputToken = "0x1111111111111111111111111111111111111111"
	cfg.OutputToken = "0x2222222222222222222222222222222222222222"
	cfg.Router = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, validConfig().ValidateConfig())
	})

	tests := []struct {
		name          string
		mutate        func(*Config)
		errorContains string
	}{
		{
			name:          "missing_chain_id",
			mutate:        func(c *Config) { c.ChainID = 0 },
			errorContains: "chain_id must be specified",
		},
		{
			name:          "missing_rpc_endpoint",
			mutate:        func(c *Config) { c.RPCEndpoint = "" },
			errorContains: "rpc_endpoint must be specified",
		},
		{
			name:          "bad_input_token",
			mutate:        func(c *Config) { c.InputToken = "not-an-address" },
			errorContains: "input_token must be a hex address",
		},
		{
			name:          "same_tokens",
			mutate:        func(c *Config) { c.OutputToken = c.InputToken },
			errorContains: "must differ",
		},
		{
			name:          "bad_router",
			mutate:        func(c *Config) { c.Router = "" },
			errorContains: "router must be a hex address",
		},
		{
			name:          "bad_deadline",
			mutate:        func(c *Config) { c.SwapDeadline = 0 },
			errorContains: "swap_deadline must be positive",
		},
		{
			name:          "bad_rate_limit",
			mutate:        func(c *Config) { c.RPCRateLimit.RequestsPerSecond = 0 },
			errorContains: "RPC rate limit error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.ValidateConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}

	t.Run("ReportsAllViolations", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChainID = 0
		cfg.RPCEndpoint = ""
		err := cfg.ValidateConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chain_id must be specified")
		assert.Contains(t, err.Error(), "rpc_endpoint must be specified")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tokenswap.json")
		data := `{
			"chain_id": 56,
			"rpc_endpoint": "http://localhost:8545",
			"input_token": "0x1111111111111111111111111111111111111111",
			"output_token": "0x2222222222222222222222222222222222222222",
			"router": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			"swap_deadline": 60000000000
		}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, uint64(56), cfg.ChainID)
		assert.Equal(t, time.Minute, cfg.SwapDeadline)
		assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.InputTokenAddress())
		// Defaults survive for fields the file omits.
		assert.Equal(t, float64(10), cfg.RPCRateLimit.RequestsPerSecond)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open config file")
	})

	t.Run("InvalidContent", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tokenswap.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"chain_id": 0}`), 0o600))

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})
}

func TestEnvOverrides(t *testing.T) {
	cfg := validConfig()
	t.Setenv(EnvRPCEndpoint, "http://node:8545")
	t.Setenv(EnvRouter, "0xcccccccccccccccccccccccccccccccccccccccc")

	cfg.ApplyEnvOverrides()
	assert.Equal(t, "http://node:8545", cfg.RPCEndpoint)
	assert.Equal(t, common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc"), cfg.RouterAddress())
	// Untouched settings keep their file values.
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.InputTokenAddress())
}

func TestLoadSecureConfig(t *testing.T) {
	t.Run("Present", func(t *testing.T) {
		t.Setenv(EnvPrivateKey, "abc123")
		secure, err := LoadSecureConfig()
		require.NoError(t, err)
		assert.Equal(t, "abc123", secure.PrivateKey)
	})

	t.Run("Missing", func(t *testing.T) {
		t.Setenv(EnvPrivateKey, "")
		_, err := LoadSecureConfig()
		require.Error(t, err)
	})
}
