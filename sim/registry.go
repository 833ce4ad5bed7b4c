package sim

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trenchy69/FLashloanbotonETH/flashloan"
)

// Registry implements flashloan.Registry over registered sim pools.
type Registry struct {
	pools map[pairKey]*Pool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[pairKey]*Pool)}
}

// Add registers a pool as the canonical pool for its pair.
func (r *Registry) Add(p *Pool) {
	r.pools[sortedPair(p.token0, p.token1)] = p
}

// PairFor returns the canonical pool address for a pair, or the zero
// address if none is registered.
func (r *Registry) PairFor(tokenA, tokenB common.Address) common.Address {
	if p, ok := r.pools[sortedPair(tokenA, tokenB)]; ok {
		return p.addr
	}
	return common.Address{}
}

// Pool resolves the registered pool for a pair, or nil.
func (r *Registry) Pool(_ context.Context, tokenA, tokenB common.Address) (flashloan.Pool, error) {
	if p, ok := r.pools[sortedPair(tokenA, tokenB)]; ok {
		return p, nil
	}
	return nil, nil
}
