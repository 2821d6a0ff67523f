// Package domain contains the one-per-customer subscription plan. The
// daily price is a snapshot of the tier price at subscribe or plan-change
// time; the reconciler repairs drift against the live tier table.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Subscription pins a customer to a daily quantity, its bottle split and
// the price snapshot charged per delivered day.
type Subscription struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	CustomerID      snowflake.ID      `json:"customer_id" gorm:"not null;uniqueIndex:ux_subscriptions_customer"`
	DailyQuantityML int               `json:"daily_quantity_ml" gorm:"not null"`
	DailyPriceCents int64             `json:"daily_price_cents" gorm:"not null"`
	LargeBottles    int               `json:"large_bottles" gorm:"not null"`
	SmallBottles    int               `json:"small_bottles" gorm:"not null"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
