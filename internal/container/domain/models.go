// Package domain contains the returnable-container ledger. Entries are
// append-only; the per-size running balance is the fold of issues,
// returns and penalty settlements and must never go negative.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Action string

const (
	ActionIssued   Action = "ISSUED"
	ActionReturned Action = "RETURNED"
	ActionPenalty  Action = "PENALTY"
)

type SizeClass string

const (
	SizeLarge SizeClass = "LARGE"
	SizeSmall SizeClass = "SMALL"
)

func (s SizeClass) Valid() bool { return s == SizeLarge || s == SizeSmall }

// ContainerLedgerEntry is one issue, return or penalty settlement.
// BalanceAfter is the per-size running balance after this entry.
type ContainerLedgerEntry struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID   snowflake.ID `json:"customer_id" gorm:"not null;index"`
	Action       Action       `json:"action" gorm:"type:text;not null"`
	SizeClass    SizeClass    `json:"size_class" gorm:"type:text;not null"`
	Quantity     int          `json:"quantity" gorm:"not null"`
	BalanceAfter int          `json:"balance_after" gorm:"not null"`
	Notes        string       `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ContainerLedgerEntry) TableName() string { return "container_ledger_entries" }

// ContainerBalance is the current outstanding count per
// (customer, size class), kept in step with the ledger fold.
type ContainerBalance struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID   snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:ux_container_balances_customer_size"`
	SizeClass    SizeClass    `json:"size_class" gorm:"type:text;not null;uniqueIndex:ux_container_balances_customer_size"`
	BalanceCount int          `json:"balance_count" gorm:"not null;default:0"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ContainerBalance) TableName() string { return "container_balances" }

var (
	ErrInvalidCustomer        = errors.New("invalid_customer")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidSizeClass       = errors.New("invalid_size_class")
	ErrInvalidFine            = errors.New("invalid_fine")
	ErrExceedsBalance         = errors.New("exceeds_balance")
	ErrConcurrentModification = errors.New("concurrent_modification")
)

// ExceedsBalanceError carries the numbers the caller needs to render the
// rejection.
type ExceedsBalanceError struct {
	SizeClass   SizeClass
	Requested   int
	Outstanding int
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("exceeds_balance: %d %s requested, %d outstanding", e.Requested, e.SizeClass, e.Outstanding)
}

func (e *ExceedsBalanceError) Is(target error) bool { return target == ErrExceedsBalance }
