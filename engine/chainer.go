package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/trenchy69/FLashloanbotonETH/dex"
)

// Chainer sequences single-hop trades along a route, carrying each hop's
// output into the next. Slippage tolerance is zero: every hop demands at
// least its own quote, and anything less fails the attempt.
type Chainer struct {
	recipient common.Address
	tolerance time.Duration
	logger    *zap.Logger
}

// NewChainer creates a chainer delivering hop outputs to recipient. The
// tolerance is added to the current time to form each hop's execution
// deadline, computed per call rather than once up front.
func NewChainer(recipient common.Address, tolerance time.Duration, logger *zap.Logger) *Chainer {
	return &Chainer{
		recipient: recipient,
		tolerance: tolerance,
		logger:    logger,
	}
}

// Run drives every hop of a route, returning the final realized output.
func (c *Chainer) Run(ctx context.Context, route Route, amountIn *big.Int) (*big.Int, error) {
	amount := amountIn
	for _, hop := range route.Hops {
		out, err := c.Swap(ctx, hop.Venue, hop.AssetIn, hop.AssetOut, amount)
		if err != nil {
			return nil, err
		}
		amount = out
	}
	return amount, nil
}

// Swap executes one hop: quote the expected output, then execute requiring
// at least that quote.
func (c *Chainer) Swap(ctx context.Context, venue dex.Venue, assetIn, assetOut common.Address, amountIn *big.Int) (*big.Int, error) {
	pair, err := venue.GetPair(ctx, assetIn, assetOut)
	if err != nil {
		return nil, fmt.Errorf("failed to look up pool on %s: %w", venue.Name(), err)
	}
	if pair == (common.Address{}) {
		return nil, fmt.Errorf("%w: %s has no pool for %s/%s",
			ErrPoolNotFound, venue.Name(), assetIn.Hex(), assetOut.Hex())
	}

	path := []common.Address{assetIn, assetOut}
	quote, err := venue.GetAmountsOut(ctx, amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("failed to quote hop on %s: %w", venue.Name(), err)
	}
	expected := quote[len(quote)-1]
	if expected.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s quoted nothing for %s in", ErrZeroOutputTrade, venue.Name(), amountIn)
	}

	deadline := time.Now().Add(c.tolerance)
	amounts, err := venue.SwapExactTokensForTokens(ctx, amountIn, expected, path, c.recipient, deadline)
	if err != nil {
		return nil, fmt.Errorf("%w: hop on %s: %v", ErrTradeFailed, venue.Name(), err)
	}

	received := amounts[len(amounts)-1]
	if received.Sign() <= 0 {
		return nil, fmt.Errorf("%w: hop on %s", ErrZeroOutputTrade, venue.Name())
	}

	c.logger.Debug("Hop executed",
		zap.String("venue", venue.Name()),
		zap.String("asset_in", assetIn.Hex()),
		zap.String("asset_out", assetOut.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", received.String()),
	)
	return received, nil
}
