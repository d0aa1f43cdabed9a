package models

import "time"

// Listing is a secondary-market offer. Tokens are not escrowed at listing
// time; settlement pulls them from the seller through a standing allowance,
// so a fill can fail at settlement even though the listing looks covered.
type Listing struct {
	ID            int64     `json:"id" db:"id"`
	PropertyID    string    `json:"property_id" db:"property_id"`
	Seller        string    `json:"seller" db:"seller"`
	Amount        int64     `json:"amount" db:"amount"` // remaining token base units
	PricePerToken int64     `json:"price_per_token" db:"price_per_token"`
	CreationTime  time.Time `json:"creation_time" db:"creation_time"`
	IsActive      bool      `json:"is_active" db:"is_active"`
}
