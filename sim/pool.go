package sim

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trenchy69/FLashloanbotonETH/flashloan"
)

// Pool is a flash-swap pool over world balances. Swap pays out the requested
// amounts, invokes the borrower synchronously, then verifies it was repaid
// principal plus fee; on any failure it reverts every effect of the unit.
type Pool struct {
	world    *World
	addr     common.Address
	token0   common.Address
	token1   common.Address
	borrower flashloan.Borrower
}

// NewPool creates a pool for a token pair; tokens are held in canonical
// sorted order like a real pair contract.
func NewPool(world *World, tokenA, tokenB common.Address) *Pool {
	key := sortedPair(tokenA, tokenB)
	return &Pool{
		world:  world,
		addr:   Account(fmt.Sprintf("flashpool/%s/%s", key.a.Hex(), key.b.Hex())),
		token0: key.a,
		token1: key.b,
	}
}

// SetBorrower attaches the callback receiver.
func (p *Pool) SetBorrower(b flashloan.Borrower) {
	p.borrower = b
}

// Address returns the pool address.
func (p *Pool) Address() common.Address {
	return p.addr
}

// Token0 returns the pool's first token.
func (p *Pool) Token0(context.Context) (common.Address, error) {
	return p.token0, nil
}

// Token1 returns the pool's second token.
func (p *Pool) Token1(context.Context) (common.Address, error) {
	return p.token1, nil
}

// Swap issues the flash swap as one atomic unit: payout, callback and
// repayment check all succeed, or the world reverts to its pre-swap state.
func (p *Pool) Swap(ctx context.Context, amount0Out, amount1Out *big.Int, to common.Address, data []byte) error {
	if p.borrower == nil {
		return fmt.Errorf("pool %s has no borrower attached", p.addr.Hex())
	}

	var borrowed common.Address
	var principal *big.Int
	switch {
	case amount0Out != nil && amount0Out.Sign() > 0:
		borrowed, principal = p.token0, amount0Out
	case amount1Out != nil && amount1Out.Sign() > 0:
		borrowed, principal = p.token1, amount1Out
	default:
		return fmt.Errorf("swap requests no output")
	}

	snap := p.world.Snapshot()
	pre := p.world.BalanceOf(borrowed, p.addr)

	if err := p.world.Transfer(borrowed, p.addr, to, principal); err != nil {
		p.world.RevertToSnapshot(snap)
		return fmt.Errorf("loan payout: %w", err)
	}

	if err := p.borrower.OnFlashSwap(ctx, p, to, amount0Out, amount1Out, data); err != nil {
		p.world.RevertToSnapshot(snap)
		return err
	}

	// The pool's own accounting: it must end up with its pre-loan balance
	// plus the fee.
	required := new(big.Int).Add(pre, flashloan.Fee(principal))
	if post := p.world.BalanceOf(borrowed, p.addr); post.Cmp(required) < 0 {
		p.world.RevertToSnapshot(snap)
		return fmt.Errorf("insufficient repayment: pool holds %s, requires %s", post, required)
	}
	return nil
}
