package models

import (
	"math/big"
	"time"
)

// RevenueAccumulator carries the running revenue-per-token rate for one
// property. CumulativePerToken is scaled by RevenuePrecision and only ever
// grows.
type RevenueAccumulator struct {
	PropertyID         string
	TotalReceived      int64
	CumulativePerToken *big.Int
	LastDistribution   time.Time
}

// NewRevenueAccumulator returns a zeroed accumulator for the property.
func NewRevenueAccumulator(propertyID string) *RevenueAccumulator {
	return &RevenueAccumulator{
		PropertyID:         propertyID,
		CumulativePerToken: new(big.Int),
	}
}

// ClaimCheckpoint records how much revenue a holder has already been paid for
// one property, in payment base units.
type ClaimCheckpoint struct {
	PropertyID   string    `json:"property_id" db:"property_id"`
	Holder       string    `json:"holder" db:"holder"`
	TotalClaimed int64     `json:"total_claimed" db:"total_claimed"`
	LastClaim    time.Time `json:"last_claim" db:"last_claim"`
}

// Owed computes the holder's lifetime entitlement for the given balance
// (liquid plus staked), deferring the precision-losing division to this one
// place.
func (a *RevenueAccumulator) Owed(balance int64) int64 {
	if a == nil || a.CumulativePerToken == nil || balance <= 0 {
		return 0
	}
	owed := new(big.Int).Mul(big.NewInt(balance), a.CumulativePerToken)
	owed.Quo(owed, RevenuePrecision)
	if !owed.IsInt64() {
		return 0
	}
	return owed.Int64()
}
