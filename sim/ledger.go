package sim

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger implements custody.Ledger over world balances for one holder.
type Ledger struct {
	world  *World
	holder common.Address
}

// NewLedger creates a ledger view for the holder.
func NewLedger(world *World, holder common.Address) *Ledger {
	return &Ledger{world: world, holder: holder}
}

// BalanceOf returns the holder's balance of an asset.
func (l *Ledger) BalanceOf(_ context.Context, asset common.Address) (*big.Int, error) {
	return l.world.BalanceOf(asset, l.holder), nil
}

// Transfer moves amount of asset from the holder to the recipient.
func (l *Ledger) Transfer(_ context.Context, asset, to common.Address, amount *big.Int) error {
	return l.world.Transfer(asset, l.holder, to, amount)
}

// Pull moves amount of asset from a third party into the holder's custody.
func (l *Ledger) Pull(_ context.Context, asset, from common.Address, amount *big.Int) error {
	return l.world.Transfer(asset, from, l.holder, amount)
}
