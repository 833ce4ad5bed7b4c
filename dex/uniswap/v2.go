package uniswap

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
	MainnetRouter  = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	MainnetFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
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

// UniswapV2 implements the dex.Venue gateway for a Uniswap V2 deployment.
type UniswapV2 struct {
	client    *ethclient.Client
	factory   *bind.BoundContract
	router    *bind.BoundContract
	opts      *bind.TransactOpts
	name      string
	pairCache *lru.Cache
}

// NewUniswapV2 creates a venue gateway for the given factory and router
// deployment.
func NewUniswapV2(client *ethclient.Client, factory, router common.Address, opts *bind.TransactOpts) (*UniswapV2, error) {
	routerABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}

	cache, err := lru.New(256)
	if err != nil {
		return nil, fmt.Errorf("failed to create pair cache: %w", err)
	}

	return &UniswapV2{
		client:    client,
		factory:   bind.NewBoundContract(factory, factoryABI, client, client, client),
		router:    bind.NewBoundContract(router, routerABI, client, client, client),
		opts:      opts,
		name:      "UniswapV2",
		pairCache: cache,
	}, nil
}

// Name returns the venue name.
func (u *UniswapV2) Name() string {
	return u.name
}

// GetPair returns the pool address for a pair, or the zero address if the
// factory has none.
func (u *UniswapV2) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	key := tokenA.Hex() + tokenB.Hex()
	if cached, ok := u.pairCache.Get(key); ok {
		return cached.(common.Address), nil
	}

	var out []interface{}
	if err := u.factory.Call(&bind.CallOpts{Context: ctx}, &out, "getPair", tokenA, tokenB); err != nil {
		return common.Address{}, fmt.Errorf("failed to get pair: %w", err)
	}

	pair, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected getPair result type")
	}

	// Only cache live pools; a missing pool may be created later.
	if pair != (common.Address{}) {
		u.pairCache.Add(key, pair)
	}
	return pair, nil
}

// GetReserves returns the reserves of a pair's pool, oriented to the
// argument order.
func (u *UniswapV2) GetReserves(ctx context.Context, tokenA, tokenB common.Address) (*dex.Reserves, error) {
	pairAddr, err := u.GetPair(ctx, tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	if pairAddr == (common.Address{}) {
		return nil, fmt.Errorf("no pool for pair %s/%s", tokenA.Hex(), tokenB.Hex())
	}

	pair, err := NewUniswapV2Pair(pairAddr, u.client)
	if err != nil {
		return nil, fmt.Errorf("failed to bind pair contract: %w", err)
	}

	reserve0, reserve1, err := pair.GetReserves()
	if err != nil {
		return nil, fmt.Errorf("failed to get reserves: %w", err)
	}

	return OrientReserves(tokenA, tokenB, reserve0, reserve1), nil
}

// OrientReserves maps a pool's token0/token1 reserves onto the caller's
// pair order. The pool's token0 is the numerically lower address.
func OrientReserves(tokenA, tokenB common.Address, reserve0, reserve1 *big.Int) *dex.Reserves {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		reserve0, reserve1 = reserve1, reserve0
	}
	return &dex.Reserves{Reserve0: reserve0, Reserve1: reserve1}
}

// GetAmountsOut quotes the router for the amounts along a path.
func (u *UniswapV2) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("invalid path length %d", len(path))
	}

	var out []interface{}
	if err := u.router.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountsOut", amountIn, path); err != nil {
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

// SwapExactTokensForTokens executes a swap through the router. The router
// reverts the transaction when the realized output would fall below
// amountOutMin or the deadline has passed, so a mined swap always met the
// minimum; the returned amounts are the pre-swap quote.
func (u *UniswapV2) SwapExactTokensForTokens(ctx context.Context, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline time.Time) ([]*big.Int, error) {
	amounts, err := u.GetAmountsOut(ctx, amountIn, path)
	if err != nil {
		return nil, err
	}

	opts := *u.opts
	opts.Context = ctx

	tx, err := u.router.Transact(&opts, "swapExactTokensForTokens",
		amountIn, amountOutMin, path, to, big.NewInt(deadline.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to submit swap: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, u.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for swap %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != 1 {
		return nil, fmt.Errorf("swap %s reverted", tx.Hash().Hex())
	}

	return amounts, nil
}
