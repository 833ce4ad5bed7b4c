package dex

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Venue represents one independent trading venue. Venues are interchangeable
// through this contract shape: quote the output for an input amount, then
// execute requiring at least a minimum output before a deadline.
type Venue interface {
	// Name returns the venue name.
	Name() string

	// GetPair returns the venue's pool for a pair, or the zero address if
	// the venue has no pool for it.
	GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error)

	// GetAmountsOut quotes the amounts along a swap path for an input
	// amount; amounts[0] is the input, amounts[len-1] the expected output.
	GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)

	// SwapExactTokensForTokens executes a swap of amountIn along path,
	// sending the output to the recipient. The venue rejects execution if
	// the realized output falls below amountOutMin or the deadline has
	// passed. Returns the realized amounts for every leg.
	SwapExactTokensForTokens(ctx context.Context, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline time.Time) ([]*big.Int, error)
}

// ReserveReader is implemented by venues that expose raw pool reserves,
// used by the scanner to skip routes whose pools are too shallow for the
// scan size. Returned reserves are oriented to the argument order:
// Reserve0 backs tokenA and Reserve1 backs tokenB.
type ReserveReader interface {
	GetReserves(ctx context.Context, tokenA, tokenB common.Address) (*Reserves, error)
}

// Reserves represents token pair reserves.
type Reserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}
