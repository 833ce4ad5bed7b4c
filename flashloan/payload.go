package flashloan

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// LoanRequest is the context a loan initiation hands to the pool, which the
// pool echoes back unmodified in the flash-swap callback. It exists only for
// the lifetime of one settlement attempt and is never persisted.
type LoanRequest struct {
	BorrowedAsset common.Address
	Amount        *big.Int
	Beneficiary   common.Address
	PathVariant   uint8
}

var payloadArgs abi.Arguments

func init() {
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	uint8Ty, err := abi.NewType("uint8", "", nil)
	if err != nil {
		panic(err)
	}

	payloadArgs = abi.Arguments{
		{Name: "borrowedAsset", Type: addressTy},
		{Name: "amount", Type: uint256Ty},
		{Name: "beneficiary", Type: addressTy},
		{Name: "pathVariant", Type: uint8Ty},
	}
}

// Encode packs the request into the opaque byte payload handed to the pool.
func (r LoanRequest) Encode() ([]byte, error) {
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("loan amount must be positive")
	}

	data, err := payloadArgs.Pack(r.BorrowedAsset, r.Amount, r.Beneficiary, r.PathVariant)
	if err != nil {
		return nil, fmt.Errorf("failed to encode loan request: %w", err)
	}
	return data, nil
}

// DecodeLoanRequest unpacks a callback payload back into a LoanRequest.
func DecodeLoanRequest(data []byte) (LoanRequest, error) {
	values, err := payloadArgs.Unpack(data)
	if err != nil {
		return LoanRequest{}, fmt.Errorf("failed to decode loan request: %w", err)
	}
	if len(values) != 4 {
		return LoanRequest{}, fmt.Errorf("malformed loan request payload")
	}

	req := LoanRequest{}
	var ok bool
	if req.BorrowedAsset, ok = values[0].(common.Address); !ok {
		return LoanRequest{}, fmt.Errorf("malformed borrowed asset field")
	}
	if req.Amount, ok = values[1].(*big.Int); !ok {
		return LoanRequest{}, fmt.Errorf("malformed amount field")
	}
	if req.Beneficiary, ok = values[2].(common.Address); !ok {
		return LoanRequest{}, fmt.Errorf("malformed beneficiary field")
	}
	if req.PathVariant, ok = values[3].(uint8); !ok {
		return LoanRequest{}, fmt.Errorf("malformed path variant field")
	}
	return req, nil
}
