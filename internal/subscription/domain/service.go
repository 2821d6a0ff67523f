package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrNotFound          = errors.New("subscription_not_found")
	ErrAlreadySubscribed = errors.New("already_subscribed")
	ErrSamePlan          = errors.New("same_plan")
)

type SubscribeRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	QuantityML int          `json:"quantity_ml"`
}

type ChangePlanRequest struct {
	CustomerID    snowflake.ID `json:"customer_id"`
	NewQuantityML int          `json:"new_quantity_ml"`
}

// ChangePlanResult reports whether the change went through. When the
// wallet cannot absorb the remaining-month cost difference the change is
// NOT applied and AmountDueCents is the top-up that would unblock it.
type ChangePlanResult struct {
	Applied         bool          `json:"applied"`
	AmountDueCents  int64         `json:"amount_due_cents,omitempty"`
	CostDiffCents   int64         `json:"cost_diff_cents"`
	RemainingDays   int           `json:"remaining_days"`
	NewBalanceCents int64         `json:"new_balance_cents,omitempty"`
	Subscription    *Subscription `json:"subscription"`
}

// BillingRecomputer refreshes a month's persisted payment total after
// the daily rate changes. Satisfied by the billing service; kept narrow
// so plan changes do not pull in the whole billing surface.
type BillingRecomputer interface {
	Recompute(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, year, month int, dailyRateCents int64) error
}

type Service interface {
	// Subscribe creates the subscription and the customer's wallet in one
	// transaction. The customer must not already hold a subscription.
	Subscribe(ctx context.Context, req SubscribeRequest) (*Subscription, error)

	GetByCustomer(ctx context.Context, customerID snowflake.ID) (*Subscription, error)

	// ChangePlan charges (or credits) the cost difference over the rest of
	// the current month before switching the quantity. An unaffordable
	// upgrade leaves the plan untouched and reports the shortfall.
	ChangePlan(ctx context.Context, req ChangePlanRequest) (*ChangePlanResult, error)
}
