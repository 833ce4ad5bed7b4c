// Package engine implements the flash-loan arbitrage settlement core: loan
// initiation, callback-authenticated execution, trade chaining, profitability
// verification and repayment.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/trenchy69/FLashloanbotonETH/custody"
	"github.com/trenchy69/FLashloanbotonETH/flashloan"
)

// Params configures an Engine.
type Params struct {
	// Self is the engine's own identity, the recipient of loans and hop
	// outputs and the expected initiator of every honored callback.
	Self common.Address

	// Owner is the only identity allowed to trigger settlements and
	// maintenance operations.
	Owner common.Address

	// Beneficiary receives the residual profit of a settled attempt.
	Beneficiary common.Address

	Ledger custody.Ledger
	Pools  flashloan.Registry
	Routes map[PathVariant]Route

	// DeadlineTolerance is added to the current time to form each hop's
	// execution deadline. Zero selects a 30 second default.
	DeadlineTolerance time.Duration

	Logger  *zap.Logger
	Metrics *Metrics
}

// Engine is the settlement state machine. A settlement attempt runs
// Idle -> Authenticating -> Trading -> Verifying -> Settling -> Done, and any
// failure lands in Aborted with every effect unwound by the surrounding
// atomic unit of execution.
type Engine struct {
	mu          sync.Mutex
	self        common.Address
	owner       common.Address
	beneficiary common.Address
	ledger      custody.Ledger
	pools       flashloan.Registry
	routes      map[PathVariant]Route
	chainer     *Chainer
	logger      *zap.Logger
	metrics     *Metrics
}

// New creates a settlement engine.
func New(p Params) (*Engine, error) {
	if p.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if p.Pools == nil {
		return nil, fmt.Errorf("pool registry cannot be nil")
	}
	if len(p.Routes) == 0 {
		return nil, fmt.Errorf("route menu cannot be empty")
	}
	for _, route := range p.Routes {
		if err := route.Validate(); err != nil {
			return nil, err
		}
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if p.DeadlineTolerance == 0 {
		p.DeadlineTolerance = 30 * time.Second
	}
	if p.Metrics == nil {
		p.Metrics = NewMetrics(nil)
	}
	if p.Beneficiary == (common.Address{}) {
		p.Beneficiary = p.Owner
	}

	return &Engine{
		self:        p.Self,
		owner:       p.Owner,
		beneficiary: p.Beneficiary,
		ledger:      p.Ledger,
		pools:       p.Pools,
		routes:      p.Routes,
		chainer:     NewChainer(p.Self, p.DeadlineTolerance, p.Logger),
		logger:      p.Logger,
		metrics:     p.Metrics,
	}, nil
}

// Address returns the engine's own identity.
func (e *Engine) Address() common.Address {
	return e.self
}

// Owner returns the identity allowed to trigger settlements.
func (e *Engine) Owner() common.Address {
	return e.owner
}

// StartArbitrage initiates a flash loan of amount units of asset and settles
// it along the requested path variant. The pool invokes OnFlashSwap
// synchronously before Swap returns; the whole chain is one indivisible unit
// and a failure anywhere leaves every balance unchanged.
func (e *Engine) StartArbitrage(ctx context.Context, caller, asset common.Address, amount *big.Int, variant PathVariant) error {
	if caller != e.owner {
		return fmt.Errorf("%w: %s may not start arbitrage", ErrUnauthorized, caller.Hex())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	e.metrics.attempts.Inc()
	e.metrics.activeAttempts.Inc()
	defer func() {
		e.metrics.activeAttempts.Dec()
		e.metrics.settleLatency.Observe(time.Since(start).Seconds())
	}()

	err := e.initiate(ctx, asset, amount, variant)
	if err != nil {
		e.metrics.aborts.WithLabelValues(AbortReason(err)).Inc()
		e.logger.Warn("Settlement attempt aborted",
			zap.String("asset", asset.Hex()),
			zap.String("amount", amount.String()),
			zap.String("variant", variant.String()),
			zap.Error(err),
		)
		return err
	}

	e.metrics.settled.Inc()
	return nil
}

// initiate resolves the canonical pool, encodes the loan request and hands
// control to the pool, which calls back into OnFlashSwap before returning.
func (e *Engine) initiate(ctx context.Context, asset common.Address, amount *big.Int, variant PathVariant) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("loan amount must be positive")
	}

	route, ok := e.routes[variant]
	if !ok {
		return fmt.Errorf("unknown path variant %d", variant)
	}
	if route.BaseAsset() != asset {
		return fmt.Errorf("%w: route %s starts at %s, not %s",
			ErrAssetMismatch, variant, route.BaseAsset().Hex(), asset.Hex())
	}

	pool, err := e.pools.Pool(ctx, asset, route.QuoteAsset())
	if err != nil {
		return fmt.Errorf("failed to resolve flash pool: %w", err)
	}
	if pool == nil {
		return fmt.Errorf("%w: no flash pool for %s/%s",
			ErrPoolNotFound, asset.Hex(), route.QuoteAsset().Hex())
	}

	token0, err := pool.Token0(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pool token0: %w", err)
	}
	token1, err := pool.Token1(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pool token1: %w", err)
	}

	amount0Out, amount1Out := big.NewInt(0), big.NewInt(0)
	switch asset {
	case token0:
		amount0Out = amount
	case token1:
		amount1Out = amount
	default:
		return fmt.Errorf("%w: pool %s does not hold %s",
			ErrAssetMismatch, pool.Address().Hex(), asset.Hex())
	}

	req := flashloan.LoanRequest{
		BorrowedAsset: asset,
		Amount:        amount,
		Beneficiary:   e.beneficiary,
		PathVariant:   uint8(variant),
	}
	data, err := req.Encode()
	if err != nil {
		return err
	}

	e.logger.Info("Initiating flash loan",
		zap.String("pool", pool.Address().Hex()),
		zap.String("asset", asset.Hex()),
		zap.String("amount", amount.String()),
		zap.String("variant", variant.String()),
	)

	if err := pool.Swap(ctx, amount0Out, amount1Out, e.self, data); err != nil {
		return fmt.Errorf("flash swap failed: %w", err)
	}
	return nil
}

// OnFlashSwap is the flash-loan callback. It authenticates the caller,
// recomputes the repayment obligation, drives the trade chain along the
// requested path, verifies profitability and settles. Any returned error
// makes the pool discard the whole unit.
func (e *Engine) OnFlashSwap(ctx context.Context, caller flashloan.Pool, sender common.Address, amount0, amount1 *big.Int, data []byte) error {
	// Authenticating
	token0, err := caller.Token0(ctx)
	if err != nil {
		return fmt.Errorf("failed to read callback token0: %w", err)
	}
	token1, err := caller.Token1(ctx)
	if err != nil {
		return fmt.Errorf("failed to read callback token1: %w", err)
	}

	if canonical := e.pools.PairFor(token0, token1); canonical != caller.Address() {
		return fmt.Errorf("%w: caller %s is not the canonical pool %s for %s/%s",
			ErrInvalidCallbackSource, caller.Address().Hex(), canonical.Hex(), token0.Hex(), token1.Hex())
	}
	if sender != e.self {
		return fmt.Errorf("%w: loan initiated by %s", ErrInvalidInitiator, sender.Hex())
	}

	req, err := flashloan.DecodeLoanRequest(data)
	if err != nil {
		return err
	}

	var borrowed common.Address
	var amount *big.Int
	switch {
	case amount0 != nil && amount0.Sign() > 0:
		borrowed, amount = token0, amount0
	case amount1 != nil && amount1.Sign() > 0:
		borrowed, amount = token1, amount1
	default:
		return fmt.Errorf("%w: loan has no output amount", ErrAssetMismatch)
	}
	if borrowed != req.BorrowedAsset {
		return fmt.Errorf("%w: loan slot pays %s, request names %s",
			ErrAssetMismatch, borrowed.Hex(), req.BorrowedAsset.Hex())
	}

	route, ok := e.routes[PathVariant(req.PathVariant)]
	if !ok {
		return fmt.Errorf("unknown path variant %d", req.PathVariant)
	}
	if route.BaseAsset() != borrowed {
		return fmt.Errorf("%w: route %s does not start at borrowed asset %s",
			ErrAssetMismatch, route.Variant, borrowed.Hex())
	}

	// Trading
	obligation := flashloan.Obligation(amount)
	final, err := e.chainer.Run(ctx, route, amount)
	if err != nil {
		return err
	}

	// Verifying: strict inequality, break-even is failure.
	if final.Cmp(obligation) <= 0 {
		return fmt.Errorf("%w: final output %s does not exceed obligation %s",
			ErrUnprofitableArbitrage, final, obligation)
	}

	// Settling
	profit := new(big.Int).Sub(final, obligation)
	if err := e.ledger.Transfer(ctx, borrowed, req.Beneficiary, profit); err != nil {
		return fmt.Errorf("%w: profit distribution: %v", ErrTransferFailed, err)
	}
	if err := e.ledger.Transfer(ctx, borrowed, caller.Address(), obligation); err != nil {
		return fmt.Errorf("%w: repayment: %v", ErrTransferFailed, err)
	}

	volume, _ := new(big.Float).SetInt(profit).Float64()
	e.metrics.profitVolume.Add(volume)

	e.logger.Info("Settlement complete",
		zap.String("pool", caller.Address().Hex()),
		zap.String("asset", borrowed.Hex()),
		zap.String("principal", amount.String()),
		zap.String("obligation", obligation.String()),
		zap.String("profit", profit.String()),
		zap.String("beneficiary", req.Beneficiary.Hex()),
	)
	return nil
}

// Fund pulls amount of asset from the payer into the engine's custody. The
// payer must have approved the engine beforehand.
func (e *Engine) Fund(ctx context.Context, from, asset common.Address, amount *big.Int) error {
	if err := e.ledger.Pull(ctx, asset, from, amount); err != nil {
		return fmt.Errorf("%w: funding: %v", ErrTransferFailed, err)
	}
	return nil
}

// BalanceOf returns the engine's holding of an asset.
func (e *Engine) BalanceOf(ctx context.Context, asset common.Address) (*big.Int, error) {
	return e.ledger.BalanceOf(ctx, asset)
}

// EmergencyWithdraw sweeps the engine's entire holding of an asset to the
// owner, independent of the settlement state machine.
func (e *Engine) EmergencyWithdraw(ctx context.Context, caller, asset common.Address) error {
	if caller != e.owner {
		return fmt.Errorf("%w: %s may not withdraw", ErrUnauthorized, caller.Hex())
	}

	balance, err := e.ledger.BalanceOf(ctx, asset)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance.Sign() == 0 {
		return nil
	}

	if err := e.ledger.Transfer(ctx, asset, e.owner, balance); err != nil {
		return fmt.Errorf("%w: emergency withdrawal: %v", ErrTransferFailed, err)
	}

	e.logger.Warn("Emergency withdrawal",
		zap.String("asset", asset.Hex()),
		zap.String("amount", balance.String()),
	)
	return nil
}
