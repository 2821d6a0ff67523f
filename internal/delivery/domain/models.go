// Package domain contains the concrete per-date delivery row. Rows are
// created lazily by the reconciler and mutated only by status transitions
// or price repair; DELIVERED and NOT_DELIVERED are terminal.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
)

type Status string

const (
	StatusScheduled    Status = "SCHEDULED"
	StatusDelivered    Status = "DELIVERED"
	StatusNotDelivered Status = "NOT_DELIVERED"
	StatusPaused       Status = "PAUSED"
)

// Terminal reports whether a status can never change again. A terminal
// row's charge is historical and must not be repaired.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusNotDelivered
}

// CanTransition reports whether the delivery status machine allows
// from -> to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusScheduled:
		return to == StatusDelivered || to == StatusNotDelivered || to == StatusPaused
	case StatusPaused:
		return to == StatusScheduled || to == StatusNotDelivered
	default:
		return false
	}
}

// Delivery is one concrete scheduled or occurred event for a
// (customer, date) pair. ChargeCents reflects the price in effect when the
// row was created or last repaired.
type Delivery struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID       snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:ux_deliveries_customer_date"`
	DeliveryPersonID snowflake.ID `json:"delivery_person_id" gorm:"not null;index"`
	DeliveryDate     clock.Date   `json:"delivery_date" gorm:"type:text;not null;uniqueIndex:ux_deliveries_customer_date"`
	QuantityML       int          `json:"quantity_ml" gorm:"not null"`
	LargeBottles     int          `json:"large_bottles" gorm:"not null"`
	SmallBottles     int          `json:"small_bottles" gorm:"not null"`
	Status           Status       `json:"status" gorm:"type:text;not null;index"`
	ChargeCents      int64        `json:"charge_cents" gorm:"not null"`
	DepositCents     int64        `json:"deposit_cents" gorm:"not null"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Delivery) TableName() string { return "deliveries" }

var (
	ErrNotFound          = errors.New("delivery_not_found")
	ErrInvalidTransition = errors.New("invalid_delivery_transition")
)
