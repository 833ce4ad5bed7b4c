package flashloan

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is a flash-swap capable liquidity pool. Swap pays out the requested
// output amounts and synchronously invokes the borrower's callback before
// verifying repayment; if the callback fails or the pool is not made whole,
// the whole swap is discarded.
type Pool interface {
	Address() common.Address
	Token0(ctx context.Context) (common.Address, error)
	Token1(ctx context.Context) (common.Address, error)
	Swap(ctx context.Context, amount0Out, amount1Out *big.Int, to common.Address, data []byte) error
}

// Borrower receives the flash-swap callback. caller is the pool performing
// the callback, sender is the address that initiated the swap, and data is
// the opaque payload supplied at loan initiation, echoed back unmodified.
type Borrower interface {
	OnFlashSwap(ctx context.Context, caller Pool, sender common.Address, amount0, amount1 *big.Int, data []byte) error
}

// Registry resolves the canonical pool for a token pair.
type Registry interface {
	// PairFor returns the canonical pool address for a pair. It is a pure
	// function of the two token addresses and never touches the network.
	PairFor(tokenA, tokenB common.Address) common.Address

	// Pool resolves a live pool handle for a pair, or nil if no pool exists.
	Pool(ctx context.Context, tokenA, tokenB common.Address) (Pool, error)
}
