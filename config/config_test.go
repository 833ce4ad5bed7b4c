package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint64(1), cfg.ChainID)
	assert.Equal(t, "1000000000000000000", cfg.TradeAmountInt().String())
	assert.Equal(t, "10000000000000000", cfg.MinProfitInt().String())
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChainID = 0
	cfg.TradeAmount = "-5"
	cfg.Tokens.Base = "not-an-address"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain_id")
	assert.Contains(t, err.Error(), "trade_amount")
	assert.Contains(t, err.Error(), "tokens.base")
}

func TestValidateRejectsIdenticalSecondaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tokens.SecondaryB = cfg.Tokens.SecondaryA

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secondary assets must differ")
}

func TestDryRunSkipsChainAddresses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DryRun = true
	cfg.RPCEndpoint = ""
	cfg.Engine = ""
	cfg.Owner = ""
	cfg.Venue1.Router = ""

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"trade_amount": "250", "min_profit": "3", "dry_run": true}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "250", cfg.TradeAmountInt().String())
	assert.Equal(t, "3", cfg.MinProfitInt().String())
	assert.True(t, cfg.DryRun)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultWETH, cfg.Tokens.Base)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "trade_amount: \"250\"\ndry_run: true\ntokens:\n  base: \"" + DefaultWETH + "\"\n  secondary_a: \"" + DefaultUSDC + "\"\n  secondary_b: \"" + DefaultDAI + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "250", cfg.TradeAmountInt().String())
	assert.True(t, cfg.DryRun)
}

func TestLoadConfigDurations(t *testing.T) {
	t.Run("JSONStrings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := `{"dry_run": true, "deadline_tolerance": "45s", "scan_interval": "1m"}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.DeadlineTolerance.Std())
		assert.Equal(t, time.Minute, cfg.ScanInterval.Std())
	})

	t.Run("YAMLStrings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "dry_run: true\ndeadline_tolerance: 45s\nscan_interval: 1m\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.DeadlineTolerance.Std())
		assert.Equal(t, time.Minute, cfg.ScanInterval.Std())
	})

	t.Run("IntegerNanoseconds", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := `{"dry_run": true, "deadline_tolerance": 45000000000}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.DeadlineTolerance.Std())
	})

	t.Run("Garbage", func(t *testing.T) {
		var d Duration
		require.Error(t, d.UnmarshalJSON([]byte(`"not a duration"`)))
	})
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("ARBITRAGE_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnvWithDefault("ARBITRAGE_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnvWithDefault("ARBITRAGE_TEST_MISSING", "fallback"))
}

func TestGetRequiredEnv(t *testing.T) {
	t.Setenv("ARBITRAGE_TEST_REQUIRED", "value")
	got, err := GetRequiredEnv("ARBITRAGE_TEST_REQUIRED")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = GetRequiredEnv("ARBITRAGE_TEST_ABSENT")
	require.Error(t, err)
}
