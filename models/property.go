package models

import "time"

// Property is one tokenized real-estate asset registered on the platform.
// Each property gets its own token ledger; MintAddress is set when the
// on-chain mirror is enabled.
type Property struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Symbol      string    `json:"symbol" db:"symbol"`
	Address     string    `json:"address" db:"address"`
	TotalValue  int64     `json:"total_value" db:"total_value"` // payment base units
	MintAddress string    `json:"mint_address,omitempty" db:"mint_address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Sale is the single active primary offering for a property. Reconfiguration
// replaces the whole record; deactivation is the only way out.
type Sale struct {
	PropertyID    string    `json:"property_id" db:"property_id"`
	PricePerToken int64     `json:"price_per_token" db:"price_per_token"` // payment base units per whole token
	MinPurchase   int64     `json:"min_purchase" db:"min_purchase"`       // token base units
	MaxPurchase   int64     `json:"max_purchase" db:"max_purchase"`
	MaxSupply     int64     `json:"max_supply" db:"max_supply"` // 0 = unlimited
	TotalSold     int64     `json:"total_sold" db:"total_sold"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	SaleEndTime   time.Time `json:"sale_end_time" db:"sale_end_time"` // zero = no deadline
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Ended reports whether the optional deadline has passed.
func (s Sale) Ended(now time.Time) bool {
	return !s.SaleEndTime.IsZero() && now.After(s.SaleEndTime)
}
