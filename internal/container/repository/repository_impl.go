package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	containerdomain "github.com/smallbiznis/milkrun/internal/container/domain"
	"github.com/smallbiznis/milkrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() containerdomain.Repository {
	return &repo{}
}

func (r *repo) EnsureBalance(ctx context.Context, conn *gorm.DB, genID func() snowflake.ID, customerID snowflake.ID, size containerdomain.SizeClass) (*containerdomain.ContainerBalance, error) {
	if err := conn.WithContext(ctx).Exec(
		`INSERT INTO container_balances (id, customer_id, size_class, balance_count, updated_at)
		 VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT (customer_id, size_class) DO NOTHING`,
		genID(), customerID, string(size), time.Now().UTC(),
	).Error; err != nil {
		return nil, err
	}

	var balance containerdomain.ContainerBalance
	query := fmt.Sprintf(
		`SELECT id, customer_id, size_class, balance_count, updated_at
		 FROM container_balances
		 WHERE customer_id = ? AND size_class = ? %s`,
		db.LockClause(conn),
	)
	if err := conn.WithContext(ctx).Raw(query, customerID, string(size)).Scan(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repo) UpdateBalance(ctx context.Context, conn *gorm.DB, balanceID snowflake.ID, fromCount, toCount int) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE container_balances
		 SET balance_count = ?, updated_at = ?
		 WHERE id = ? AND balance_count = ?`,
		toCount, time.Now().UTC(), balanceID, fromCount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertEntry(ctx context.Context, conn *gorm.DB, entry *containerdomain.ContainerLedgerEntry) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO container_ledger_entries (
			id, customer_id, action, size_class, quantity,
			balance_after, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CustomerID,
		string(entry.Action),
		string(entry.SizeClass),
		entry.Quantity,
		entry.BalanceAfter,
		entry.Notes,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListEntries(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, limit int) ([]containerdomain.ContainerLedgerEntry, error) {
	var rows []containerdomain.ContainerLedgerEntry
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, action, size_class, quantity,
		 balance_after, notes, created_at
		 FROM container_ledger_entries
		 WHERE customer_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		customerID, limit,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) FindBalances(ctx context.Context, conn *gorm.DB, customerID snowflake.ID) ([]containerdomain.ContainerBalance, error) {
	var rows []containerdomain.ContainerBalance
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, size_class, balance_count, updated_at
		 FROM container_balances
		 WHERE customer_id = ?
		 ORDER BY size_class`,
		customerID,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) ListPositiveBalances(ctx context.Context, conn *gorm.DB) ([]containerdomain.ContainerBalance, error) {
	var rows []containerdomain.ContainerBalance
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, size_class, balance_count, updated_at
		 FROM container_balances
		 WHERE balance_count > 0
		 ORDER BY customer_id, size_class`,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) OldestOutstandingIssue(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, size containerdomain.SizeClass) (*containerdomain.ContainerLedgerEntry, error) {
	var entry containerdomain.ContainerLedgerEntry
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, action, size_class, quantity,
		 balance_after, notes, created_at
		 FROM container_ledger_entries
		 WHERE customer_id = ? AND size_class = ? AND action = 'ISSUED'
		   AND id > COALESCE((
			SELECT MAX(z.id) FROM container_ledger_entries z
			WHERE z.customer_id = ? AND z.size_class = ? AND z.balance_after = 0
		   ), 0)
		 ORDER BY id
		 LIMIT 1`,
		customerID, string(size), customerID, string(size),
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}
