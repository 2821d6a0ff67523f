// Package domain contains the per-date calendar overlays: a Pause excludes
// a date from delivery, a DeliveryModification overrides the quantity for
// one date. Both are deleted on clear, never historized; the effective
// state then reverts to the subscription defaults.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
)

// Pause excludes one (customer, date) from delivery. Presence forces the
// effective state, and any existing delivery row, to PAUSED.
type Pause struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID        snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:ux_pauses_customer_date"`
	PauseDate         clock.Date   `json:"pause_date" gorm:"type:text;not null;uniqueIndex:ux_pauses_customer_date"`
	CreatedByCustomer bool         `json:"created_by_customer" gorm:"not null"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Pause) TableName() string { return "pauses" }

// DeliveryModification overrides the delivered quantity for one date.
type DeliveryModification struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID   snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:ux_modifications_customer_date"`
	ModDate      clock.Date   `json:"mod_date" gorm:"column:mod_date;type:text;not null;uniqueIndex:ux_modifications_customer_date"`
	QuantityML   int          `json:"quantity_ml" gorm:"not null"`
	LargeBottles int          `json:"large_bottles" gorm:"not null"`
	SmallBottles int          `json:"small_bottles" gorm:"not null"`
	Notes        string       `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (DeliveryModification) TableName() string { return "delivery_modifications" }
