package models

import (
	"errors"
	"math/big"
)

// Token and payment amounts are carried as int64 base units. One whole
// property token is TokenScale base units; prices are payment base units per
// whole token, so cost computations divide by TokenScale.
const (
	TokenScale   int64 = 1_000_000
	PaymentScale int64 = 1_000_000

	// BpsDenominator is the divisor for all basis-point fields.
	BpsDenominator int64 = 10_000
)

// RevenuePrecision scales the cumulative revenue-per-token accumulator so the
// integer division happens once, at claim time.
var RevenuePrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var ErrAmountOverflow = errors.New("amount overflows int64")

// MulDiv computes a*b/den through big.Int so the intermediate product cannot
// wrap. The result must fit an int64.
func MulDiv(a, b, den int64) (int64, error) {
	if den == 0 {
		return 0, errors.New("division by zero")
	}
	r := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	r.Quo(r, big.NewInt(den))
	if !r.IsInt64() {
		return 0, ErrAmountOverflow
	}
	return r.Int64(), nil
}
