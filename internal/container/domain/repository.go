package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// EnsureBalance inserts a zero balance row for the (customer, size)
	// pair if none exists, then returns the row locked for update.
	EnsureBalance(ctx context.Context, db *gorm.DB, genID func() snowflake.ID, customerID snowflake.ID, size SizeClass) (*ContainerBalance, error)

	// UpdateBalance is guarded on the previously read count; a lost race
	// reports no update so the caller can surface ErrConcurrentModification.
	UpdateBalance(ctx context.Context, db *gorm.DB, balanceID snowflake.ID, fromCount, toCount int) (bool, error)

	InsertEntry(ctx context.Context, db *gorm.DB, entry *ContainerLedgerEntry) error
	ListEntries(ctx context.Context, db *gorm.DB, customerID snowflake.ID, limit int) ([]ContainerLedgerEntry, error)

	FindBalances(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]ContainerBalance, error)
	ListPositiveBalances(ctx context.Context, db *gorm.DB) ([]ContainerBalance, error)

	// OldestOutstandingIssue finds the creation time of the oldest ISSUED
	// entry since the per-size balance last touched zero.
	OldestOutstandingIssue(ctx context.Context, db *gorm.DB, customerID snowflake.ID, size SizeClass) (*ContainerLedgerEntry, error)
}
