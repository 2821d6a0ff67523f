package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// MonthStatus is the billing view for one (customer, year, month).
type MonthStatus struct {
	Year           int           `json:"year"`
	Month          int           `json:"month"`
	TotalCostCents int64         `json:"total_cost_cents"`
	AmountDueCents int64         `json:"amount_due_cents"`
	BalanceCents   int64         `json:"balance_cents"`
	Status         PaymentStatus `json:"status"`
	IsGracePeriod  bool          `json:"is_grace_period"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
}

type Service interface {
	// StatusFor computes the month's cost at the subscription's current
	// daily rate, what the wallet still owes, and the grace flag.
	StatusFor(ctx context.Context, customerID snowflake.ID, year, month int) (*MonthStatus, error)

	// EnsureCurrent upserts the current month's payment row and refreshes
	// a stale PENDING total after a rate change. Safe to call repeatedly.
	EnsureCurrent(ctx context.Context, customerID snowflake.ID) error

	// Recompute refreshes one month's PENDING total at the given daily
	// rate inside the caller's transaction.
	Recompute(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, year, month int, dailyRateCents int64) error

	// MarkPaid settles the month once the payment boundary confirms
	// funds. Paying an already-paid month is rejected.
	MarkPaid(ctx context.Context, customerID snowflake.ID, year, month int) (*MonthlyPayment, error)
}
