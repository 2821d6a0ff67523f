// Package domain contains the administrator-editable price tier table and
// the resolved rate type the rest of the system consumes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PriceTier is one row per supported daily quantity. Quantity is the
// natural key; inactive tiers are excluded from resolution.
type PriceTier struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	QuantityML        int          `json:"quantity_ml" gorm:"column:quantity_ml;not null;uniqueIndex:ux_price_tiers_quantity"`
	DailyPriceCents   int64        `json:"daily_price_cents" gorm:"not null"`
	LargeDepositCents int64        `json:"large_deposit_cents" gorm:"not null"`
	SmallDepositCents int64        `json:"small_deposit_cents" gorm:"not null"`
	Active            bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PriceTier) TableName() string { return "price_tiers" }

// Rate is the resolver output for one daily quantity.
type Rate struct {
	QuantityML        int   `json:"quantity_ml"`
	DailyPriceCents   int64 `json:"daily_price_cents"`
	LargeDepositCents int64 `json:"large_deposit_cents"`
	SmallDepositCents int64 `json:"small_deposit_cents"`
}

// DepositFor is the total container deposit for a bottle split.
func (r Rate) DepositFor(large, small int) int64 {
	return int64(large)*r.LargeDepositCents + int64(small)*r.SmallDepositCents
}

const (
	largeBottleML = 1000
	smallBottleML = 500
)

// BottleSplit decomposes a daily quantity into large (1000ml) and small
// (500ml) bottles, largest first.
func BottleSplit(quantityML int) (large, small int) {
	if quantityML <= 0 {
		return 0, 0
	}
	large = quantityML / largeBottleML
	small = (quantityML % largeBottleML) / smallBottleML
	return large, small
}
