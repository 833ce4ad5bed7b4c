package flashloan

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Pair contract ABI, limited to the flash-swap surface
const pairABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "token0",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "token1",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": false,
	"inputs": [
		{"name": "amount0Out", "type": "uint256"},
		{"name": "amount1Out", "type": "uint256"},
		{"name": "to", "type": "address"},
		{"name": "data", "type": "bytes"}
	],
	"name": "swap",
	"outputs": [],
	"payable": false,
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// PairPool is a live pair contract used as a flash-swap pool.
type PairPool struct {
	contract *bind.BoundContract
	address  common.Address
	client   *ethclient.Client
	opts     *bind.TransactOpts
}

// NewPairPool binds a pair contract at the given address.
func NewPairPool(address common.Address, client *ethclient.Client, opts *bind.TransactOpts) (*PairPool, error) {
	parsedABI, err := abi.JSON(strings.NewReader(pairABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	contract := bind.NewBoundContract(address, parsedABI, client, client, client)

	return &PairPool{
		contract: contract,
		address:  address,
		client:   client,
		opts:     opts,
	}, nil
}

// Address returns the pool contract address.
func (p *PairPool) Address() common.Address {
	return p.address
}

// Token0 returns the pool's first token.
func (p *PairPool) Token0(ctx context.Context) (common.Address, error) {
	return p.token(ctx, "token0")
}

// Token1 returns the pool's second token.
func (p *PairPool) Token1(ctx context.Context) (common.Address, error) {
	return p.token(ctx, "token1")
}

func (p *PairPool) token(ctx context.Context, method string) (common.Address, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return common.Address{}, fmt.Errorf("failed to call %s: %w", method, err)
	}

	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s result type", method)
	}
	return addr, nil
}

// Swap issues the flash swap. The pair contract pays out the requested
// amounts, calls back into the receiver, and reverts the whole transaction
// if it is not repaid principal plus fee before the callback returns.
func (p *PairPool) Swap(ctx context.Context, amount0Out, amount1Out *big.Int, to common.Address, data []byte) error {
	opts := *p.opts
	opts.Context = ctx

	tx, err := p.contract.Transact(&opts, "swap", amount0Out, amount1Out, to, data)
	if err != nil {
		return fmt.Errorf("failed to submit swap: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, p.client, tx)
	if err != nil {
		return fmt.Errorf("failed waiting for swap %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != 1 {
		return fmt.Errorf("swap %s reverted", tx.Hash().Hex())
	}
	return nil
}
