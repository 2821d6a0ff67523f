package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type CompleteProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type AssignRequest struct {
	CustomerID       snowflake.ID
	DeliveryPersonID snowflake.ID
	StartDate        clock.Date
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Customer, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Customer, error)

	// CompleteProfile moves VISITOR -> PENDING_PAYMENT.
	CompleteProfile(ctx context.Context, id snowflake.ID, req CompleteProfileRequest) (*Customer, error)

	// OnPaymentReceived moves PENDING_PAYMENT -> PENDING_APPROVAL after the
	// first confirmed top-up, and re-activates an INACTIVE customer whose
	// balance is back inside the grace window.
	OnPaymentReceived(ctx context.Context, id snowflake.ID) error

	// AssignDeliveryPerson charges the container deposit and activates the
	// customer; both happen in one transaction or not at all.
	AssignDeliveryPerson(ctx context.Context, req AssignRequest) (*Customer, error)

	// UnassignDeliveryPerson returns an ACTIVE/INACTIVE customer to
	// PENDING_APPROVAL.
	UnassignDeliveryPerson(ctx context.Context, id snowflake.ID) (*Customer, error)

	// SyncStatusForBalance applies the balance-driven ACTIVE/INACTIVE flip
	// inside the caller's transaction.
	SyncStatusForBalance(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
}

var (
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPhone        = errors.New("invalid_phone")
	ErrInvalidPerson       = errors.New("invalid_delivery_person")
	ErrNotFound            = errors.New("customer_not_found")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrMissingSubscription = errors.New("missing_subscription")
	ErrInsufficientBalance = errors.New("insufficient_balance")
)

// InsufficientBalanceError carries the shortfall so the caller can prompt
// for the exact payment needed.
type InsufficientBalanceError struct {
	RequiredCents  int64 `json:"required_cents"`
	BalanceCents   int64 `json:"balance_cents"`
	ShortfallCents int64 `json:"shortfall_cents"`
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient_balance: short %d", e.ShortfallCents)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }
