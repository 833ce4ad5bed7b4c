package sushiswap

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/trenchy69/FLashloanbotonETH/dex"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru"
)

// Mainnet deployment addresses
var (
	MainnetFactory = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")
	MainnetRouter  = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
)

const routerABIJson = `[{
	"inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "path", "type": "address[]"}
	],
	"name": "getAmountsOut",
	"outputs": [{"name": "amounts", "type": "uint256[]"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}
	],
	"name": "swapExactTokensForTokens",
	"outputs": [{"name": "amounts", "type": "uint256[]"}],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

const pairABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "getReserves",
	"outputs": [
		{"name": "reserve0", "type": "uint112"},
		{"name": "reserve1", "type": "uint112"},
		{"name": "blockTimestampLast", "type": "uint32"}
	],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

const factoryABIJson = `[{
	"constant": true,
	"inputs": [
		{"name": "tokenA", "type": "address"},
		{"name": "tokenB", "type": "address"}
	],
	"name": "getPair",
	"outputs": [{"name": "pair", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

// SushiswapV2 implements the dex.Venue gateway for the Sushiswap deployment.
// The contract surface is Uniswap V2 compatible; only the deployment
// addresses differ.
type SushiswapV2 struct {
	client    *ethclient.Client
	factory   *bind.BoundContract
	router    *bind.BoundContract
	pairABI   abi.ABI
	opts      *bind.TransactOpts
	pairCache *lru.Cache
}

// NewSushiswapV2 creates a venue gateway for the given factory and router
// deployment.
func NewSushiswapV2(client *ethclient.Client, factory, router common.Address, opts *bind.TransactOpts) (*SushiswapV2, error) {
	routerABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(pairABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	cache, err := lru.New(256)
	if err != nil {
		return nil, fmt.Errorf("failed to create pair cache: %w", err)
	}

	return &SushiswapV2{
		client:    client,
		factory:   bind.NewBoundContract(factory, factoryABI, client, client, client),
		router:    bind.NewBoundContract(router, routerABI, client, client, client),
		pairABI:   pairABI,
		opts:      opts,
		pairCache: cache,
	}, nil
}

// Name returns the venue name.
func (s *SushiswapV2) Name() string {
	return "SushiswapV2"
}

// GetPair returns the pool address for a pair, or the zero address if the
// factory has none.
func (s *SushiswapV2) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	key := tokenA.Hex() + tokenB.Hex()
	if cached, ok := s.pairCache.Get(key); ok {
		return cached.(common.Address), nil
	}

	var out []interface{}
	if err := s.factory.Call(&bind.CallOpts{Context: ctx}, &out, "getPair", tokenA, tokenB); err != nil {
		return common.Address{}, fmt.Errorf("failed to get pair: %w", err)
	}

	pair, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected getPair result type")
	}

	if pair != (common.Address{}) {
		s.pairCache.Add(key, pair)
	}
	return pair, nil
}

// GetReserves returns the reserves of a pair's pool, oriented to the
// argument order. The pool's token0 is the numerically lower address.
func (s *SushiswapV2) GetReserves(ctx context.Context, tokenA, tokenB common.Address) (*dex.Reserves, error) {
	pairAddr, err := s.GetPair(ctx, tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	if pairAddr == (common.Address{}) {
		return nil, fmt.Errorf("no pool for pair %s/%s", tokenA.Hex(), tokenB.Hex())
	}

	pair := bind.NewBoundContract(pairAddr, s.pairABI, s.client, s.client, s.client)

	var out []interface{}
	if err := pair.Call(&bind.CallOpts{Context: ctx}, &out, "getReserves"); err != nil {
		return nil, fmt.Errorf("failed to get reserves: %w", err)
	}

	reserve0, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse reserve0")
	}
	reserve1, ok := out[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse reserve1")
	}

	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		reserve0, reserve1 = reserve1, reserve0
	}
	return &dex.Reserves{Reserve0: reserve0, Reserve1: reserve1}, nil
}

// GetAmountsOut quotes the router for the amounts along a path.
func (s *SushiswapV2) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("invalid path length %d", len(path))
	}

	var out []interface{}
	if err := s.router.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountsOut", amountIn, path); err != nil {
		return nil, fmt.Errorf("failed to quote amounts out: %w", err)
	}

	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getAmountsOut result type")
	}
	if len(amounts) != len(path) {
		return nil, fmt.Errorf("quote returned %d amounts for %d-token path", len(amounts), len(path))
	}
	return amounts, nil
}

// SwapExactTokensForTokens executes a swap through the router; see the
// Uniswap gateway for the revert semantics, which are identical here.
func (s *SushiswapV2) SwapExactTokensForTokens(ctx context.Context, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline time.Time) ([]*big.Int, error) {
	amounts, err := s.GetAmountsOut(ctx, amountIn, path)
	if err != nil {
		return nil, err
	}

	opts := *s.opts
	opts.Context = ctx

	tx, err := s.router.Transact(&opts, "swapExactTokensForTokens",
		amountIn, amountOutMin, path, to, big.NewInt(deadline.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to submit swap: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for swap %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != 1 {
		return nil, fmt.Errorf("swap %s reverted", tx.Hash().Hex())
	}

	return amounts, nil
}
