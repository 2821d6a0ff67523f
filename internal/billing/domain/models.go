// Package domain contains the monthly payment record and the grace-period
// computation. A month's total cost tracks the subscription's current
// daily rate; it is refreshed, never left stale, when the rate changes.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
)

// MonthlyPayment is one row per (customer, year, month).
type MonthlyPayment struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	CustomerID     snowflake.ID  `json:"customer_id" gorm:"not null;uniqueIndex:ux_monthly_payments_customer_month"`
	Year           int           `json:"year" gorm:"not null;uniqueIndex:ux_monthly_payments_customer_month"`
	Month          int           `json:"month" gorm:"not null;uniqueIndex:ux_monthly_payments_customer_month"`
	TotalCostCents int64         `json:"total_cost_cents" gorm:"not null"`
	Status         PaymentStatus `json:"status" gorm:"type:text;not null"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MonthlyPayment) TableName() string { return "monthly_payments" }

// InGracePeriod reports whether a balance is negative but still within
// one day's charge at the given rate. The threshold scales with the plan,
// it is not a fixed amount.
func InGracePeriod(balanceCents, dailyRateCents int64) bool {
	return balanceCents < 0 && balanceCents >= -dailyRateCents
}

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidMonth    = errors.New("invalid_month")
	ErrNotFound        = errors.New("monthly_payment_not_found")
	ErrAlreadyPaid     = errors.New("already_paid")
)
