package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type MoveRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	SizeClass  SizeClass    `json:"size_class"`
	Quantity   int          `json:"quantity"`
	Notes      string       `json:"notes,omitempty"`
}

type PenaltyRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	FineCents  int64        `json:"fine_cents"`
	LargeCount int          `json:"large_count"`
	SmallCount int          `json:"small_count"`
	Notes      string       `json:"notes,omitempty"`
}

type Balances struct {
	Large int `json:"large"`
	Small int `json:"small"`
}

// OverdueCustomer is one customer flagged for penalty review.
type OverdueCustomer struct {
	CustomerID    snowflake.ID `json:"customer_id"`
	Large         int          `json:"large"`
	Small         int          `json:"small"`
	OldestIssueAt time.Time    `json:"oldest_issue_at"`
	DaysOverdue   int          `json:"days_overdue"`
}

type Service interface {
	Issue(ctx context.Context, req MoveRequest) (*ContainerLedgerEntry, error)

	// Return rejects with ExceedsBalanceError when the quantity exceeds
	// the outstanding count for that size.
	Return(ctx context.Context, req MoveRequest) (*ContainerLedgerEntry, error)

	Balances(ctx context.Context, customerID snowflake.ID) (Balances, error)
	History(ctx context.Context, customerID snowflake.ID, limit int) ([]ContainerLedgerEntry, error)

	// ListOverdue flags customers whose oldest unreturned issue is older
	// than the threshold.
	ListOverdue(ctx context.Context, thresholdDays int) ([]OverdueCustomer, error)

	// ImposePenalty settles the given counts as PENALTY entries and
	// debits the wallet with the fine, both in one transaction.
	ImposePenalty(ctx context.Context, req PenaltyRequest) error
}
