// Package gas tracks network fee levels and prices settlement attempts.
package gas

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Rough cost model for one flash-swap settlement: the loan itself plus one
// router swap per hop.
const (
	baseTxGas       = 21000
	flashSwapGas    = 90000
	gasPerHop       = 152000
	settlementGas   = 60000
	defaultGasPrice = 30_000_000_000 // 30 gwei fallback before the first refresh
)

// Estimator tracks base fee and priority fee and prices settlement attempts.
// With a nil client it runs on a static fallback price, which dry runs use.
type Estimator struct {
	client   *ethclient.Client
	logger   *zap.Logger
	interval time.Duration

	mu          sync.RWMutex
	baseFee     *big.Int
	priorityFee *big.Int

	stopOnce sync.Once
	stop     chan struct{}
}

// NewEstimator creates an estimator. Start must be called to begin refreshing
// from the chain; until the first refresh, and always when client is nil,
// estimates use the static fallback price.
func NewEstimator(client *ethclient.Client, logger *zap.Logger, interval time.Duration) *Estimator {
	if interval <= 0 {
		interval = 12 * time.Second
	}
	return &Estimator{
		client:   client,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start refreshes fee levels until the context is cancelled or Stop is
// called. It is a no-op without a client.
func (e *Estimator) Start(ctx context.Context) {
	if e.client == nil {
		return
	}
	go e.loop(ctx)
}

func (e *Estimator) loop(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	if err := e.refresh(ctx); err != nil {
		e.logger.Warn("Initial gas refresh failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			if err := e.refresh(ctx); err != nil {
				e.logger.Error("Failed to refresh gas prices", zap.Error(err))
			}
		}
	}
}

func (e *Estimator) refresh(ctx context.Context) error {
	header, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to get latest header: %w", err)
	}
	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("failed to get priority fee: %w", err)
	}

	e.mu.Lock()
	e.baseFee = header.BaseFee
	e.priorityFee = tip
	e.mu.Unlock()
	return nil
}

// GasPrice returns the current effective gas price per unit.
func (e *Estimator) GasPrice() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.baseFee == nil || e.priorityFee == nil {
		return big.NewInt(defaultGasPrice)
	}
	return new(big.Int).Add(e.baseFee, e.priorityFee)
}

// EstimateGasCost prices a transaction of the given gas limit in wei.
func (e *Estimator) EstimateGasCost(gasLimit uint64) *big.Int {
	return new(big.Int).Mul(e.GasPrice(), new(big.Int).SetUint64(gasLimit))
}

// EstimateSettlementGas returns the gas limit for a flash-swap settlement
// crossing numHops venue swaps.
func (e *Estimator) EstimateSettlementGas(numHops int) uint64 {
	if numHops < 1 {
		numHops = 1
	}
	return baseTxGas + flashSwapGas + settlementGas + gasPerHop*uint64(numHops)
}

// EstimateSettlementCost prices a full settlement attempt in wei.
func (e *Estimator) EstimateSettlementCost(numHops int) *big.Int {
	return e.EstimateGasCost(e.EstimateSettlementGas(numHops))
}

// Stop halts the refresh loop.
func (e *Estimator) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}
