package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
)

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrNoSubscription  = errors.New("subscription_not_found")
	ErrNoDates         = errors.New("no_dates")
	ErrInvalidAction   = errors.New("invalid_action")
)

type PauseRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	Date       clock.Date   `json:"date"`
	ByCustomer bool         `json:"by_customer"`
}

type ModificationRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	Date       clock.Date   `json:"date"`
	QuantityML int          `json:"quantity_ml"`
	Notes      string       `json:"notes"`
}

// BatchAction is one calendar mutation applied across a set of dates.
type BatchAction string

const (
	ActionPause       BatchAction = "PAUSE"
	ActionResume      BatchAction = "RESUME"
	ActionModify      BatchAction = "MODIFY"
	ActionClearModify BatchAction = "CLEAR_MODIFY"
)

type BatchRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	Dates      []clock.Date `json:"dates"`
	Action     BatchAction  `json:"action"`
	QuantityML int          `json:"quantity_ml,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	ByCustomer bool         `json:"by_customer"`
}

// DateResult reports, per date, whether a batch action was applied or why
// it was skipped. A batch never partially applies a single date.
type DateResult struct {
	Date    clock.Date `json:"date"`
	Applied bool       `json:"applied"`
	Reason  string     `json:"reason,omitempty"`
}

// DayView is one date of the month view: the effective calendar state
// plus the concrete delivery status where a row exists.
type DayView struct {
	Date           clock.Date             `json:"date"`
	Paused         bool                   `json:"paused"`
	Modified       bool                   `json:"modified"`
	QuantityML     int                    `json:"quantity_ml"`
	LargeBottles   int                    `json:"large_bottles"`
	SmallBottles   int                    `json:"small_bottles"`
	Notes          string                 `json:"notes,omitempty"`
	DeliveryStatus *deliverydomain.Status `json:"delivery_status,omitempty"`
	ChargeCents    *int64                 `json:"charge_cents,omitempty"`
}

type Service interface {
	SetPause(ctx context.Context, req PauseRequest) error
	ClearPause(ctx context.Context, customerID snowflake.ID, date clock.Date) error
	SetModification(ctx context.Context, req ModificationRequest) error
	ClearModification(ctx context.Context, customerID snowflake.ID, date clock.Date) error

	// BatchApply runs one action over a set of dates. Dates rejected by
	// the cutoff policy are reported as skipped; eligible dates are
	// applied. The call only errors on malformed input or storage
	// failure, never on a per-date policy rejection.
	BatchApply(ctx context.Context, req BatchRequest) ([]DateResult, error)

	// EffectiveFor resolves the calendar state for one date, for callers
	// outside a reconciliation pass.
	EffectiveFor(ctx context.Context, customerID snowflake.ID, date clock.Date) (EffectiveDelivery, error)

	MonthView(ctx context.Context, customerID snowflake.ID, year int, month int) ([]DayView, error)
}
