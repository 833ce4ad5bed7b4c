package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvRPCEndpoint   = "RPC_ENDPOINT"
	EnvPrivateKey    = "PRIVATE_KEY"
	EnvWalletAddress = "WALLET_ADDRESS"
	EnvNetwork       = "NETWORK" // mainnet, sepolia, holesky
)

// SecureConfig carries secrets that never live in config files.
type SecureConfig struct {
	PrivateKey    string
	WalletAddress string
}

// LoadEnv loads environment variables from .env file
func LoadEnv() error {
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv gets an environment variable or fails
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

// LoadSecureConfig reads signing secrets from the environment.
func LoadSecureConfig() (*SecureConfig, error) {
	privateKey, err := GetRequiredEnv(EnvPrivateKey)
	if err != nil {
		return nil, err
	}
	wallet, err := GetRequiredEnv(EnvWalletAddress)
	if err != nil {
		return nil, err
	}
	return &SecureConfig{PrivateKey: privateKey, WalletAddress: wallet}, nil
}
