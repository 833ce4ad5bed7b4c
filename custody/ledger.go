// Package custody tracks and moves the engine's own asset holdings.
package custody

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

// Ledger is the asset transfer primitive the settlement core depends on.
// Balances move exactly as requested; failures are reported, never silently
// ignored.
type Ledger interface {
	// BalanceOf returns the holder's balance of an asset.
	BalanceOf(ctx context.Context, asset common.Address) (*big.Int, error)

	// Transfer moves amount of asset from the holder to the recipient.
	Transfer(ctx context.Context, asset, to common.Address, amount *big.Int) error

	// Pull moves amount of asset from a third party into the holder's
	// custody; the third party must have approved the holder.
	Pull(ctx context.Context, asset, from common.Address, amount *big.Int) error
}

const erc20ABIJson = `[{
	"constant": true,
	"inputs": [{"name": "owner", "type": "address"}],
	"name": "balanceOf",
	"outputs": [{"name": "", "type": "uint256"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": false,
	"inputs": [
		{"name": "to", "type": "address"},
		{"name": "value", "type": "uint256"}
	],
	"name": "transfer",
	"outputs": [{"name": "", "type": "bool"}],
	"payable": false,
	"stateMutability": "nonpayable",
	"type": "function"
}, {
	"constant": false,
	"inputs": [
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "value", "type": "uint256"}
	],
	"name": "transferFrom",
	"outputs": [{"name": "", "type": "bool"}],
	"payable": false,
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// ERC20Ledger implements Ledger over on-chain token contracts for a single
// holder address.
type ERC20Ledger struct {
	client   *ethclient.Client
	holder   common.Address
	opts     *bind.TransactOpts
	tokenABI abi.ABI
}

// NewERC20Ledger creates a ledger for the given holder.
func NewERC20Ledger(client *ethclient.Client, holder common.Address, opts *bind.TransactOpts) (*ERC20Ledger, error) {
	if client == nil {
		return nil, fmt.Errorf("ethclient cannot be nil")
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	return &ERC20Ledger{
		client:   client,
		holder:   holder,
		opts:     opts,
		tokenABI: parsedABI,
	}, nil
}

// BalanceOf returns the holder's balance of an asset.
func (l *ERC20Ledger) BalanceOf(ctx context.Context, asset common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(asset, l.tokenABI, l.client, l.client, l.client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", l.holder); err != nil {
		return nil, fmt.Errorf("failed to read balance of %s: %w", asset.Hex(), err)
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type")
	}
	return balance, nil
}

// Transfer moves amount of asset from the holder to the recipient.
func (l *ERC20Ledger) Transfer(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	return l.transact(ctx, asset, "transfer", to, amount)
}

// Pull moves amount of asset from a third party into custody.
func (l *ERC20Ledger) Pull(ctx context.Context, asset, from common.Address, amount *big.Int) error {
	return l.transact(ctx, asset, "transferFrom", from, l.holder, amount)
}

func (l *ERC20Ledger) transact(ctx context.Context, asset common.Address, method string, args ...interface{}) error {
	contract := bind.NewBoundContract(asset, l.tokenABI, l.client, l.client, l.client)

	opts := *l.opts
	opts.Context = ctx

	tx, err := contract.Transact(&opts, method, args...)
	if err != nil {
		return fmt.Errorf("failed to submit %s on %s: %w", method, asset.Hex(), err)
	}

	receipt, err := bind.WaitMined(ctx, l.client, tx)
	if err != nil {
		return fmt.Errorf("failed waiting for %s %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != 1 {
		return fmt.Errorf("%s %s reverted", method, tx.Hash().Hex())
	}
	return nil
}
