package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// Mainnet defaults.
const (
	DefaultWETH = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	DefaultUSDC = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	DefaultDAI  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

	DefaultUniswapRouter    = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
	DefaultUniswapFactory   = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
	DefaultSushiswapRouter  = "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"
	DefaultSushiswapFactory = "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"

	// Uniswap V2 pair init code hash, used to derive flash pool addresses.
	DefaultPairInitCodeHash = "0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"
)

// Duration decodes from a duration string like "30s" or from integer
// nanoseconds, under both JSON and YAML.
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.decode(raw)
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return d.decode(raw)
}

func (d *Duration) decode(raw interface{}) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(v)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// TokenConfig names the three assets of the route menu. Addresses are hex
// strings so the same struct decodes from JSON and YAML.
type TokenConfig struct {
	Base       string `json:"base" yaml:"base"`
	SecondaryA string `json:"secondary_a" yaml:"secondary_a"`
	SecondaryB string `json:"secondary_b" yaml:"secondary_b"`
}

// VenueConfig locates one trading venue's contracts.
type VenueConfig struct {
	Name    string `json:"name" yaml:"name"`
	Router  string `json:"router" yaml:"router"`
	Factory string `json:"factory" yaml:"factory"`
}

// Config is the full runtime configuration.
type Config struct {
	ChainID     uint64 `json:"chain_id" yaml:"chain_id"`
	RPCEndpoint string `json:"rpc_endpoint" yaml:"rpc_endpoint"`

	// Identities. Engine is the settlement contract's address, Owner the
	// only account allowed to trigger it, Beneficiary the profit sink
	// (empty means Owner).
	Engine      string `json:"engine" yaml:"engine"`
	Owner       string `json:"owner" yaml:"owner"`
	Beneficiary string `json:"beneficiary" yaml:"beneficiary"`

	Tokens TokenConfig `json:"tokens" yaml:"tokens"`
	Venue1 VenueConfig `json:"venue1" yaml:"venue1"`
	Venue2 VenueConfig `json:"venue2" yaml:"venue2"`

	// FlashFactory and PairInitCodeHash derive canonical flash pool
	// addresses for callback authentication.
	FlashFactory     string `json:"flash_factory" yaml:"flash_factory"`
	PairInitCodeHash string `json:"pair_init_code_hash" yaml:"pair_init_code_hash"`

	// TradeAmount is the loan principal per attempt, a decimal string in
	// smallest units.
	TradeAmount string `json:"trade_amount" yaml:"trade_amount"`

	// MinProfit is the net profit floor the scanner requires after the
	// repayment obligation and gas, a decimal string in smallest units.
	MinProfit string `json:"min_profit" yaml:"min_profit"`

	DeadlineTolerance  Duration `json:"deadline_tolerance" yaml:"deadline_tolerance"`
	ScanInterval       Duration `json:"scan_interval" yaml:"scan_interval"`
	DedupeWindow       Duration `json:"dedupe_window" yaml:"dedupe_window"`
	GasRefreshInterval Duration `json:"gas_refresh_interval" yaml:"gas_refresh_interval"`

	PrometheusEnabled  bool   `json:"prometheus_enabled" yaml:"prometheus_enabled"`
	PrometheusEndpoint string `json:"prometheus_endpoint" yaml:"prometheus_endpoint"`

	// DryRun runs against the in-memory world instead of a chain.
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// DefaultConfig returns a mainnet WETH/USDC/DAI configuration over Uniswap
// and Sushiswap.
func DefaultConfig() *Config {
	return &Config{
		ChainID:     1,
		RPCEndpoint: "http://localhost:8545",
		Tokens: TokenConfig{
			Base:       DefaultWETH,
			SecondaryA: DefaultUSDC,
			SecondaryB: DefaultDAI,
		},
		Venue1: VenueConfig{
			Name:    "UniswapV2",
			Router:  DefaultUniswapRouter,
			Factory: DefaultUniswapFactory,
		},
		Venue2: VenueConfig{
			Name:    "SushiswapV2",
			Router:  DefaultSushiswapRouter,
			Factory: DefaultSushiswapFactory,
		},
		FlashFactory:       DefaultUniswapFactory,
		PairInitCodeHash:   DefaultPairInitCodeHash,
		TradeAmount:        "1000000000000000000", // 1 WETH
		MinProfit:          "10000000000000000",   // 0.01 WETH
		DeadlineTolerance:  Duration(30 * time.Second),
		ScanInterval:       Duration(3 * time.Second),
		DedupeWindow:       Duration(time.Minute),
		GasRefreshInterval: Duration(12 * time.Second),
		PrometheusEnabled:  true,
		PrometheusEndpoint: ":9090",
	}
}

// Validate checks the configuration, collecting every problem.
func (c *Config) Validate() error {
	var errs []string

	if c.ChainID == 0 {
		errs = append(errs, "chain_id must be specified")
	}
	if !c.DryRun && c.RPCEndpoint == "" {
		errs = append(errs, "rpc_endpoint must be specified")
	}
	if amount, ok := parseAmount(c.TradeAmount); !ok || amount.Sign() <= 0 {
		errs = append(errs, "trade_amount must be a positive decimal amount")
	}
	if c.MinProfit != "" {
		if floor, ok := parseAmount(c.MinProfit); !ok || floor.Sign() < 0 {
			errs = append(errs, "min_profit must be a non-negative decimal amount")
		}
	}
	if c.DeadlineTolerance <= 0 {
		errs = append(errs, "deadline_tolerance must be positive")
	}
	if c.ScanInterval <= 0 {
		errs = append(errs, "scan_interval must be positive")
	}

	for name, addr := range map[string]string{
		"tokens.base":        c.Tokens.Base,
		"tokens.secondary_a": c.Tokens.SecondaryA,
		"tokens.secondary_b": c.Tokens.SecondaryB,
	} {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Sprintf("%s is not a valid address", name))
		}
	}
	if c.Tokens.SecondaryA == c.Tokens.SecondaryB {
		errs = append(errs, "secondary assets must differ")
	}

	if !c.DryRun {
		for name, addr := range map[string]string{
			"engine":         c.Engine,
			"owner":          c.Owner,
			"venue1.router":  c.Venue1.Router,
			"venue1.factory": c.Venue1.Factory,
			"venue2.router":  c.Venue2.Router,
			"venue2.factory": c.Venue2.Factory,
			"flash_factory":  c.FlashFactory,
		} {
			if !common.IsHexAddress(addr) {
				errs = append(errs, fmt.Sprintf("%s is not a valid address", name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Address parses a validated hex address field.
func Address(s string) common.Address {
	return common.HexToAddress(s)
}

func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 10)
}

// TradeAmountInt returns the loan principal. The config must have been
// validated first.
func (c *Config) TradeAmountInt() *big.Int {
	amount, _ := parseAmount(c.TradeAmount)
	return amount
}

// MinProfitInt returns the profit floor, zero when unset.
func (c *Config) MinProfitInt() *big.Int {
	if c.MinProfit == "" {
		return new(big.Int)
	}
	floor, _ := parseAmount(c.MinProfit)
	return floor
}

// LoadConfig reads a JSON or YAML configuration file, chosen by extension,
// over the defaults. An empty path loads pure defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the configuration as indented JSON.
func SaveConfig(cfg *Config, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}
