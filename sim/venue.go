package sim

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type pairKey struct {
	a, b common.Address
}

func sortedPair(a, b common.Address) pairKey {
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

type rateKey struct {
	in, out common.Address
}

type rate struct {
	num, den *big.Int
}

// Venue is a fixed-rate trading venue over world balances. Rates are set per
// direction, so the same pair can quote differently each way.
type Venue struct {
	world *World
	name  string
	addr  common.Address
	pairs map[pairKey]common.Address
	rates map[rateKey]rate

	// EnforceMin controls whether swaps reject outputs below amountOutMin.
	// On by default; tests disable it to model a misbehaving venue.
	EnforceMin bool

	// ForcedOutput, when set, overrides the realized output of every swap.
	ForcedOutput *big.Int

	// FailSwaps, when set, makes every execution fail after quoting.
	FailSwaps bool
}

// NewVenue creates a venue holding its inventory at a derived address.
func NewVenue(world *World, name string) *Venue {
	return &Venue{
		world:      world,
		name:       name,
		addr:       Account("venue/" + name),
		pairs:      make(map[pairKey]common.Address),
		rates:      make(map[rateKey]rate),
		EnforceMin: true,
	}
}

// Name returns the venue name.
func (v *Venue) Name() string {
	return v.name
}

// Address returns the venue's inventory address, which must be funded with
// the output tokens it sells.
func (v *Venue) Address() common.Address {
	return v.addr
}

// SetRate registers the pair and quotes out = in * num / den for the given
// direction.
func (v *Venue) SetRate(assetIn, assetOut common.Address, num, den int64) {
	key := sortedPair(assetIn, assetOut)
	if _, ok := v.pairs[key]; !ok {
		v.pairs[key] = Account(fmt.Sprintf("pair/%s/%s/%s", v.name, key.a.Hex(), key.b.Hex()))
	}
	v.rates[rateKey{in: assetIn, out: assetOut}] = rate{num: big.NewInt(num), den: big.NewInt(den)}
}

// GetPair returns the venue's pool for a pair, or the zero address.
func (v *Venue) GetPair(_ context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	return v.pairs[sortedPair(tokenA, tokenB)], nil
}

// GetAmountsOut quotes the amounts along a path at the fixed rates.
func (v *Venue) GetAmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("invalid path length %d", len(path))
	}

	amounts := make([]*big.Int, len(path))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		r, ok := v.rates[rateKey{in: path[i], out: path[i+1]}]
		if !ok {
			return nil, fmt.Errorf("%s has no rate for %s -> %s", v.name, path[i].Hex(), path[i+1].Hex())
		}
		out := new(big.Int).Mul(amounts[i], r.num)
		amounts[i+1] = out.Div(out, r.den)
	}
	return amounts, nil
}

// SwapExactTokensForTokens executes the swap against the venue's inventory.
func (v *Venue) SwapExactTokensForTokens(ctx context.Context, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline time.Time) ([]*big.Int, error) {
	if time.Now().After(deadline) {
		return nil, fmt.Errorf("%s: deadline expired", v.name)
	}
	if v.FailSwaps {
		return nil, fmt.Errorf("%s: execution rejected", v.name)
	}

	amounts, err := v.GetAmountsOut(ctx, amountIn, path)
	if err != nil {
		return nil, err
	}

	out := amounts[len(amounts)-1]
	if v.ForcedOutput != nil {
		out = new(big.Int).Set(v.ForcedOutput)
		amounts[len(amounts)-1] = out
	}
	if v.EnforceMin && out.Cmp(amountOutMin) < 0 {
		return nil, fmt.Errorf("%s: output %s below minimum %s", v.name, out, amountOutMin)
	}

	tokenIn, tokenOut := path[0], path[len(path)-1]
	if err := v.world.Transfer(tokenIn, to, v.addr, amountIn); err != nil {
		return nil, fmt.Errorf("%s: input transfer: %w", v.name, err)
	}
	if out.Sign() > 0 {
		if err := v.world.Transfer(tokenOut, v.addr, to, out); err != nil {
			return nil, fmt.Errorf("%s: output transfer: %w", v.name, err)
		}
	}
	return amounts, nil
}
