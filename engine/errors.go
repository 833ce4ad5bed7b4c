package engine

import "errors"

// Every error below is fatal to the settlement attempt it occurs in: the
// attempt aborts and every effect since loan initiation is unwound. There is
// no retry or partial-settlement path.
var (
	// ErrUnauthorized rejects state-mutating calls from anyone but the owner.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPoolNotFound means no pool exists for a required asset pair.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrInvalidCallbackSource rejects a callback whose caller is not the
	// canonical pool for the pair it claims.
	ErrInvalidCallbackSource = errors.New("invalid callback source")

	// ErrInvalidInitiator rejects a callback for a loan the engine did not
	// initiate.
	ErrInvalidInitiator = errors.New("invalid initiator")

	// ErrAssetMismatch means the loan's output slot does not correspond to
	// the borrowed asset.
	ErrAssetMismatch = errors.New("asset mismatch")

	// ErrTradeFailed means a venue rejected or failed a hop execution.
	ErrTradeFailed = errors.New("trade failed")

	// ErrZeroOutputTrade means a hop realized no output.
	ErrZeroOutputTrade = errors.New("zero output trade")

	// ErrUnprofitableArbitrage means the final output did not exceed the
	// repayment obligation. Expected under normal market conditions.
	ErrUnprofitableArbitrage = errors.New("unprofitable arbitrage")

	// ErrTransferFailed means a settlement transfer did not complete.
	ErrTransferFailed = errors.New("transfer failed")
)

// AbortReason maps an attempt error to its metrics label.
func AbortReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPoolNotFound):
		return "pool_not_found"
	case errors.Is(err, ErrInvalidCallbackSource):
		return "invalid_callback_source"
	case errors.Is(err, ErrInvalidInitiator):
		return "invalid_initiator"
	case errors.Is(err, ErrAssetMismatch):
		return "asset_mismatch"
	case errors.Is(err, ErrTradeFailed):
		return "trade_failed"
	case errors.Is(err, ErrZeroOutputTrade):
		return "zero_output_trade"
	case errors.Is(err, ErrUnprofitableArbitrage):
		return "unprofitable"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	default:
		return "other"
	}
}
