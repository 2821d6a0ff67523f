// Package domain contains the customer record and its status machine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
)

// Status is the customer lifecycle state. Transitions are monotonic except
// admin unassignment, which returns an assigned customer to
// PENDING_APPROVAL, and the balance-driven ACTIVE/INACTIVE flips.
type Status string

const (
	StatusVisitor         Status = "VISITOR"
	StatusPendingPayment  Status = "PENDING_PAYMENT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusActive          Status = "ACTIVE"
	StatusInactive        Status = "INACTIVE"
)

// CanTransition reports whether the status machine allows from -> to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusVisitor:
		return to == StatusPendingPayment
	case StatusPendingPayment:
		return to == StatusPendingApproval
	case StatusPendingApproval:
		return to == StatusActive
	case StatusActive:
		return to == StatusInactive || to == StatusPendingApproval
	case StatusInactive:
		return to == StatusActive || to == StatusPendingApproval
	default:
		return false
	}
}

// Customer is a subscriber. AssignmentStartDate bounds when the reconciler
// starts creating deliveries for them.
type Customer struct {
	ID                  snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name                string        `json:"name" gorm:"type:text;not null"`
	Phone               string        `json:"phone" gorm:"type:text;not null"`
	Address             string        `json:"address" gorm:"type:text"`
	Status              Status        `json:"status" gorm:"type:text;not null;index"`
	DeliveryPersonID    *snowflake.ID `json:"delivery_person_id,omitempty" gorm:"index"`
	AssignmentStartDate *clock.Date   `json:"assignment_start_date,omitempty" gorm:"type:text"`
	CreatedAt           time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
