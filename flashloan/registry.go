package flashloan

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// FactoryRegistry resolves canonical pair pools for a single factory
// deployment using CREATE2 address derivation.
type FactoryRegistry struct {
	client   *ethclient.Client
	factory  common.Address
	initCode []byte
	opts     *bind.TransactOpts
}

// NewFactoryRegistry creates a registry for the given factory and pair
// init code hash.
func NewFactoryRegistry(client *ethclient.Client, factory common.Address, initCodeHash []byte, opts *bind.TransactOpts) *FactoryRegistry {
	return &FactoryRegistry{
		client:   client,
		factory:  factory,
		initCode: initCodeHash,
		opts:     opts,
	}
}

// PairFor computes the canonical pool address for two tokens.
func (r *FactoryRegistry) PairFor(tokenA, tokenB common.Address) common.Address {
	if tokenA.Hex() > tokenB.Hex() {
		tokenA, tokenB = tokenB, tokenA
	}

	salt := crypto.Keccak256(tokenA.Bytes(), tokenB.Bytes())
	return common.BytesToAddress(crypto.Keccak256(
		[]byte{0xff}, r.factory.Bytes(), salt, r.initCode,
	))
}

// Pool resolves the live pool for a pair, returning nil if no contract is
// deployed at the canonical address.
func (r *FactoryRegistry) Pool(ctx context.Context, tokenA, tokenB common.Address) (Pool, error) {
	addr := r.PairFor(tokenA, tokenB)

	code, err := r.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check pool code at %s: %w", addr.Hex(), err)
	}
	if len(code) == 0 {
		return nil, nil
	}

	return NewPairPool(addr, r.client, r.opts)
}
