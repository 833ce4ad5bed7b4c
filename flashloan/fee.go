package flashloan

import "math/big"

// Pool fee schedule: 3/1000 of the principal. The +1 after the truncating
// division matches the pool's own rounding so repayment is never short.
var (
	feeNumerator   = big.NewInt(3)
	feeDenominator = big.NewInt(1000)
)

// Fee returns the flash-swap fee for a principal amount.
func Fee(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, feeNumerator)
	fee.Div(fee, feeDenominator)
	return fee.Add(fee, big.NewInt(1))
}

// Obligation returns principal plus fee, the amount owed back to the pool.
func Obligation(amount *big.Int) *big.Int {
	return new(big.Int).Add(amount, Fee(amount))
}
