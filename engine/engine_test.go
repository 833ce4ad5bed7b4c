package engine

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trenchy69/FLashloanbotonETH/custody"
	"github.com/trenchy69/FLashloanbotonETH/flashloan"
	"github.com/trenchy69/FLashloanbotonETH/sim"
)

// rig wires an engine into a simulated world with two venues, two secondary
// assets and a flash pool per secondary pair. Amounts use a 1/100 smallest
// unit scale, so "3.02 units" is 302.
type rig struct {
	world       *sim.World
	engine      *Engine
	registry    *sim.Registry
	venue1      *sim.Venue
	venue2      *sim.Venue
	poolA       *sim.Pool
	poolB       *sim.Pool
	base        common.Address
	secondaryA  common.Address
	secondaryB  common.Address
	self        common.Address
	owner       common.Address
	beneficiary common.Address
	attacker    common.Address
}

func newRig(t *testing.T) *rig {
	t.Helper()

	r := &rig{
		world:       sim.NewWorld(),
		base:        sim.Account("token/base"),
		secondaryA:  sim.Account("token/secondary-a"),
		secondaryB:  sim.Account("token/secondary-b"),
		self:        sim.Account("engine"),
		owner:       sim.Account("owner"),
		beneficiary: sim.Account("beneficiary"),
		attacker:    sim.Account("attacker"),
	}

	r.venue1 = sim.NewVenue(r.world, "venue-1")
	r.venue2 = sim.NewVenue(r.world, "venue-2")

	r.registry = sim.NewRegistry()
	r.poolA = sim.NewPool(r.world, r.base, r.secondaryA)
	r.poolB = sim.NewPool(r.world, r.base, r.secondaryB)
	r.registry.Add(r.poolA)
	r.registry.Add(r.poolB)

	routes, err := BuildMenu(r.base, r.secondaryA, r.secondaryB, r.venue1, r.venue2)
	require.NoError(t, err)

	eng, err := New(Params{
		Self:        r.self,
		Owner:       r.owner,
		Beneficiary: r.beneficiary,
		Ledger:      sim.NewLedger(r.world, r.self),
		Pools:       r.registry,
		Routes:      routes,
		Logger:      zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	r.engine = eng
	r.poolA.SetBorrower(eng)
	r.poolB.SetBorrower(eng)

	return r
}

// fundProfitableRound sets up the reference scenario: borrow 300 base,
// 300 -> 600 secondary-a on venue 1, 600 -> 302 base on venue 2; fee is
// 300*3/1000+1 = 1, obligation 301, profit 1.
func (r *rig) fundProfitableRound(t *testing.T) {
	t.Helper()

	r.venue1.SetRate(r.base, r.secondaryA, 2, 1)
	r.venue2.SetRate(r.secondaryA, r.base, 302, 600)

	r.world.Mint(r.secondaryA, r.venue1.Address(), big.NewInt(1000000))
	r.world.Mint(r.base, r.venue2.Address(), big.NewInt(1000000))
	r.world.Mint(r.base, r.poolA.Address(), big.NewInt(1000))

	// Fund the engine with 5 units of base from the owner.
	r.world.Mint(r.base, r.owner, big.NewInt(500))
	require.NoError(t, r.engine.Fund(context.Background(), r.owner, r.base, big.NewInt(500)))
}

type worldSnapshot struct {
	engineBase      *big.Int
	engineSecondary *big.Int
	poolBase        *big.Int
	beneficiaryBase *big.Int
	ownerBase       *big.Int
}

func (r *rig) snapshot() worldSnapshot {
	return worldSnapshot{
		engineBase:      r.world.BalanceOf(r.base, r.self),
		engineSecondary: r.world.BalanceOf(r.secondaryA, r.self),
		poolBase:        r.world.BalanceOf(r.base, r.poolA.Address()),
		beneficiaryBase: r.world.BalanceOf(r.base, r.beneficiary),
		ownerBase:       r.world.BalanceOf(r.base, r.owner),
	}
}

func TestProfitableSettlement(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
	require.NoError(t, err)

	// Beneficiary receives finalOutput - obligation = 302 - 301.
	assert.Equal(t, int64(1), r.world.BalanceOf(r.base, r.beneficiary).Int64())
	// Pool receives exactly the obligation: 1000 - 300 + 301.
	assert.Equal(t, int64(1001), r.world.BalanceOf(r.base, r.poolA.Address()).Int64())
	// Engine keeps its own funds untouched.
	assert.Equal(t, int64(500), r.world.BalanceOf(r.base, r.self).Int64())
	assert.Equal(t, int64(0), r.world.BalanceOf(r.secondaryA, r.self).Int64())
}

func TestProfitabilityStrictness(t *testing.T) {
	t.Run("ExactBreakEvenRejected", func(t *testing.T) {
		r := newRig(t)
		r.fundProfitableRound(t)
		// Final output exactly equals the obligation of 301.
		r.venue2.SetRate(r.secondaryA, r.base, 301, 600)

		before := r.snapshot()
		err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
		require.ErrorIs(t, err, ErrUnprofitableArbitrage)
		assert.Equal(t, before, r.snapshot())
	})

	t.Run("ObligationPlusOneAccepted", func(t *testing.T) {
		r := newRig(t)
		r.fundProfitableRound(t)

		err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
		require.NoError(t, err)
		assert.Equal(t, int64(1), r.world.BalanceOf(r.base, r.beneficiary).Int64())
	})
}

func TestUnprofitableArbitrageUnwinds(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)
	// Venue 2 quotes below the obligation.
	r.venue2.SetRate(r.secondaryA, r.base, 290, 600)

	before := r.snapshot()
	err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
	require.ErrorIs(t, err, ErrUnprofitableArbitrage)
	assert.Equal(t, before, r.snapshot())
}

func TestTradeFailureUnwinds(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)
	r.venue2.FailSwaps = true

	before := r.snapshot()
	err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
	require.ErrorIs(t, err, ErrTradeFailed)
	assert.Equal(t, before, r.snapshot())
}

func TestZeroOutputTradeUnwinds(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)
	// A misbehaving venue reporting zero realized output must abort the
	// attempt rather than settle.
	r.venue2.EnforceMin = false
	r.venue2.ForcedOutput = big.NewInt(0)

	before := r.snapshot()
	err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
	require.ErrorIs(t, err, ErrZeroOutputTrade)
	assert.Equal(t, before, r.snapshot())
}

func TestExpiredDeadlineUnwinds(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	routes, err := BuildMenu(r.base, r.secondaryA, r.secondaryB, r.venue1, r.venue2)
	require.NoError(t, err)

	// A negative tolerance makes every hop deadline already expired when
	// the venue checks it.
	eng, err := New(Params{
		Self:              r.self,
		Owner:             r.owner,
		Beneficiary:       r.beneficiary,
		Ledger:            sim.NewLedger(r.world, r.self),
		Pools:             r.registry,
		Routes:            routes,
		DeadlineTolerance: -time.Second,
		Logger:            zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	r.poolA.SetBorrower(eng)

	before := r.snapshot()
	err = eng.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
	require.ErrorIs(t, err, ErrTradeFailed)
	assert.Equal(t, before, r.snapshot())
}

func TestMissingVenuePool(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)
	r.world.Mint(r.base, r.poolB.Address(), big.NewInt(1000))

	// The secondary-b flash pool exists but no venue trades the pair.
	before := r.snapshot()
	err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryBForward)
	require.ErrorIs(t, err, ErrPoolNotFound)
	assert.Equal(t, before, r.snapshot())
}

// forgedPool claims an arbitrary address and pair, bypassing loan issuance.
type forgedPool struct {
	addr           common.Address
	token0, token1 common.Address
}

func (f *forgedPool) Address() common.Address                  { return f.addr }
func (f *forgedPool) Token0(context.Context) (common.Address, error) { return f.token0, nil }
func (f *forgedPool) Token1(context.Context) (common.Address, error) { return f.token1, nil }
func (f *forgedPool) Swap(context.Context, *big.Int, *big.Int, common.Address, []byte) error {
	return nil
}

func TestForgedCallbackRejected(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	req := flashloan.LoanRequest{
		BorrowedAsset: r.base,
		Amount:        big.NewInt(300),
		Beneficiary:   r.attacker,
		PathVariant:   uint8(PathSecondaryAForward),
	}
	data, err := req.Encode()
	require.NoError(t, err)

	forged := &forgedPool{addr: sim.Account("forged-pool"), token0: r.base, token1: r.secondaryA}

	before := r.snapshot()
	err = r.engine.OnFlashSwap(context.Background(), forged, r.self, big.NewInt(300), big.NewInt(0), data)
	require.ErrorIs(t, err, ErrInvalidCallbackSource)
	assert.Equal(t, before, r.snapshot())
}

func TestForeignInitiatorRejected(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	req := flashloan.LoanRequest{
		BorrowedAsset: r.base,
		Amount:        big.NewInt(300),
		Beneficiary:   r.attacker,
		PathVariant:   uint8(PathSecondaryAForward),
	}
	data, err := req.Encode()
	require.NoError(t, err)

	token0, _ := r.poolA.Token0(context.Background())
	amount0, amount1 := big.NewInt(300), big.NewInt(0)
	if token0 != r.base {
		amount0, amount1 = amount1, amount0
	}

	err = r.engine.OnFlashSwap(context.Background(), r.poolA, r.attacker, amount0, amount1, data)
	require.ErrorIs(t, err, ErrInvalidInitiator)
}

func TestCallbackAssetMismatch(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	t.Run("NoOutputSlot", func(t *testing.T) {
		req := flashloan.LoanRequest{
			BorrowedAsset: r.base,
			Amount:        big.NewInt(300),
			Beneficiary:   r.beneficiary,
			PathVariant:   uint8(PathSecondaryAForward),
		}
		data, err := req.Encode()
		require.NoError(t, err)

		err = r.engine.OnFlashSwap(context.Background(), r.poolA, r.self, big.NewInt(0), big.NewInt(0), data)
		require.ErrorIs(t, err, ErrAssetMismatch)
	})

	t.Run("PayloadNamesWrongAsset", func(t *testing.T) {
		req := flashloan.LoanRequest{
			BorrowedAsset: r.secondaryA,
			Amount:        big.NewInt(300),
			Beneficiary:   r.beneficiary,
			PathVariant:   uint8(PathSecondaryAForward),
		}
		data, err := req.Encode()
		require.NoError(t, err)

		token0, _ := r.poolA.Token0(context.Background())
		amount0, amount1 := big.NewInt(300), big.NewInt(0)
		if token0 != r.base {
			amount0, amount1 = amount1, amount0
		}

		err = r.engine.OnFlashSwap(context.Background(), r.poolA, r.self, amount0, amount1, data)
		require.ErrorIs(t, err, ErrAssetMismatch)
	})
}

func TestAuthorization(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	before := r.snapshot()

	err := r.engine.StartArbitrage(context.Background(), r.attacker, r.base, big.NewInt(300), PathSecondaryAForward)
	require.ErrorIs(t, err, ErrUnauthorized)

	err = r.engine.EmergencyWithdraw(context.Background(), r.attacker, r.base)
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, before, r.snapshot())
}

func TestEmergencyWithdraw(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	require.NoError(t, r.engine.EmergencyWithdraw(context.Background(), r.owner, r.base))
	assert.Equal(t, int64(0), r.world.BalanceOf(r.base, r.self).Int64())
	assert.Equal(t, int64(500), r.world.BalanceOf(r.base, r.owner).Int64())

	// Sweeping an empty holding is a no-op, not an error.
	require.NoError(t, r.engine.EmergencyWithdraw(context.Background(), r.owner, r.secondaryA))
}

func TestFundAndBalanceOf(t *testing.T) {
	r := newRig(t)
	r.world.Mint(r.base, r.owner, big.NewInt(200))

	require.NoError(t, r.engine.Fund(context.Background(), r.owner, r.base, big.NewInt(150)))

	balance, err := r.engine.BalanceOf(context.Background(), r.base)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance.Int64())

	// Pulling more than the payer holds fails and moves nothing.
	err = r.engine.Fund(context.Background(), r.owner, r.base, big.NewInt(100))
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, int64(50), r.world.BalanceOf(r.base, r.owner).Int64())
}

// failingLedger wraps a ledger and fails every transfer.
type failingLedger struct {
	custody.Ledger
}

func (f *failingLedger) Transfer(context.Context, common.Address, common.Address, *big.Int) error {
	return assert.AnError
}

func TestSettlementTransferFailureUnwinds(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	// Rebuild the engine over a ledger whose transfers fail at settlement.
	routes, err := BuildMenu(r.base, r.secondaryA, r.secondaryB, r.venue1, r.venue2)
	require.NoError(t, err)
	eng, err := New(Params{
		Self:        r.self,
		Owner:       r.owner,
		Beneficiary: r.beneficiary,
		Ledger:      &failingLedger{Ledger: sim.NewLedger(r.world, r.self)},
		Pools:       r.registry,
		Routes:      routes,
		Logger:      zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	r.poolA.SetBorrower(eng)

	before := r.snapshot()
	err = eng.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathSecondaryAForward)
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, before, r.snapshot())
}

func TestStartArbitrageValidation(t *testing.T) {
	r := newRig(t)
	r.fundProfitableRound(t)

	err := r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(0), PathSecondaryAForward)
	require.Error(t, err)

	err = r.engine.StartArbitrage(context.Background(), r.owner, r.base, big.NewInt(300), PathVariant(9))
	require.Error(t, err)

	// The borrowed asset must be the requested route's base asset.
	err = r.engine.StartArbitrage(context.Background(), r.owner, r.secondaryA, big.NewInt(300), PathSecondaryAForward)
	require.ErrorIs(t, err, ErrAssetMismatch)
}
