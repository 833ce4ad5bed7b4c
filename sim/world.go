// Package sim provides an in-memory execution environment for the settlement
// engine: journaled token balances, fixed-rate venues and flash pools whose
// swaps are all-or-nothing, mirroring how a chain enforces the loan.
package sim

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account derives a deterministic address from a name, for tests and
// dry-run wiring.
func Account(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(name))[:20])
}

type balanceChange struct {
	token  common.Address
	holder common.Address
	prev   *big.Int
}

// World holds token balances with a journal, so any span of mutations can be
// reverted as a unit.
type World struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]*big.Int
	journal  []balanceChange
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits a holder with amount of token out of thin air.
func (w *World) Mint(token, holder common.Address, amount *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	balance := w.balance(token, holder)
	w.setBalance(token, holder, new(big.Int).Add(balance, amount))
}

// BalanceOf returns a copy of the holder's balance of token.
func (w *World) BalanceOf(token, holder common.Address) *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return new(big.Int).Set(w.balance(token, holder))
}

// Transfer moves amount of token between holders, failing on insufficient
// funds with no partial effect.
func (w *World) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fromBalance := w.balance(token, from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: %s holds %s of %s, needs %s",
			from.Hex(), fromBalance, token.Hex(), amount)
	}

	w.setBalance(token, from, new(big.Int).Sub(fromBalance, amount))
	w.setBalance(token, to, new(big.Int).Add(w.balance(token, to), amount))
	return nil
}

// Snapshot marks the current journal position.
func (w *World) Snapshot() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.journal)
}

// RevertToSnapshot undoes every balance mutation recorded after the snapshot.
func (w *World) RevertToSnapshot(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := len(w.journal) - 1; i >= id; i-- {
		change := w.journal[i]
		w.balances[change.token][change.holder] = change.prev
	}
	w.journal = w.journal[:id]
}

// balance returns the live balance entry; callers hold the lock.
func (w *World) balance(token, holder common.Address) *big.Int {
	if holders, ok := w.balances[token]; ok {
		if balance, ok := holders[holder]; ok {
			return balance
		}
	}
	return big.NewInt(0)
}

// setBalance journals the previous value and installs the new one; callers
// hold the lock.
func (w *World) setBalance(token, holder common.Address, amount *big.Int) {
	holders, ok := w.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		w.balances[token] = holders
	}

	prev, ok := holders[holder]
	if !ok {
		prev = big.NewInt(0)
	}
	w.journal = append(w.journal, balanceChange{token: token, holder: holder, prev: prev})
	holders[holder] = amount
}
