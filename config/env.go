package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvPrivateKey  = "TOKENSWAP_PRIVATE_KEY"
	EnvRPCEndpoint = "TOKENSWAP_RPC_ENDPOINT"
	EnvInputToken  = "TOKENSWAP_INPUT_TOKEN"
	EnvOutputToken = "TOKENSWAP_OUTPUT_TOKEN"
	EnvRouter      = "TOKENSWAP_ROUTER"
)

// SecureConfig carries secrets sourced from the environment only, never from
// the config file.
type SecureConfig struct {
	PrivateKey string
}

// LoadEnv loads environment variables from a .env file if one exists.
func LoadEnv() error {
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv gets an environment variable or fails if it is unset.
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("environment variable %s is not set", key)
	}
	return value, nil
}

// LoadSecureConfig reads secrets from the environment.
func LoadSecureConfig() (*SecureConfig, error) {
	privateKey, err := GetRequiredEnv(EnvPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key not found: %w", err)
	}
	return &SecureConfig{PrivateKey: privateKey}, nil
}

// ApplyEnvOverrides replaces address and endpoint settings with environment
// values when present.
func (c *Config) ApplyEnvOverrides() {
	c.RPCEndpoint = GetEnvWithDefault(EnvRPCEndpoint, c.RPCEndpoint)
	c.InputToken = GetEnvWithDefault(EnvInputToken, c.InputToken)
	c.OutputToken = GetEnvWithDefault(EnvOutputToken, c.OutputToken)
	c.Router = GetEnvWithDefault(EnvRouter, c.Router)
}
