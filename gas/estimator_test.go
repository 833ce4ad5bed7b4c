package gas

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestEstimatorStaticFallback(t *testing.T) {
	e := NewEstimator(nil, zaptest.NewLogger(t), 0)

	assert.Equal(t, big.NewInt(defaultGasPrice), e.GasPrice())

	cost := e.EstimateGasCost(21000)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(defaultGasPrice), big.NewInt(21000)), cost)
}

func TestEstimateSettlementGas(t *testing.T) {
	e := NewEstimator(nil, zaptest.NewLogger(t), 0)

	twoHop := e.EstimateSettlementGas(2)
	assert.Equal(t, uint64(baseTxGas+flashSwapGas+settlementGas+2*gasPerHop), twoHop)

	// Degenerate hop counts are clamped to a single hop.
	assert.Equal(t, e.EstimateSettlementGas(1), e.EstimateSettlementGas(0))
	assert.Greater(t, e.EstimateSettlementGas(3), twoHop)
}

func TestEstimateSettlementCost(t *testing.T) {
	e := NewEstimator(nil, zaptest.NewLogger(t), 0)

	want := new(big.Int).Mul(big.NewInt(defaultGasPrice), new(big.Int).SetUint64(e.EstimateSettlementGas(2)))
	assert.Equal(t, want, e.EstimateSettlementCost(2))
}
