package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"github.com/smallbiznis/milkrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() walletdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, wallet *walletdomain.Wallet) error {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO wallets (id, customer_id, balance_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		wallet.ID,
		wallet.CustomerID,
		wallet.BalanceCents,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return walletdomain.ErrWalletExists
	}
	return err
}

func (r *repo) FindByCustomer(ctx context.Context, conn *gorm.DB, customerID snowflake.ID) (*walletdomain.Wallet, error) {
	return r.find(ctx, conn, customerID, "")
}

func (r *repo) FindByCustomerForUpdate(ctx context.Context, conn *gorm.DB, customerID snowflake.ID) (*walletdomain.Wallet, error) {
	return r.find(ctx, conn, customerID, db.LockClause(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, lock string) (*walletdomain.Wallet, error) {
	var wallet walletdomain.Wallet
	query := fmt.Sprintf(
		`SELECT id, customer_id, balance_cents, created_at, updated_at
		 FROM wallets WHERE customer_id = ? %s`,
		lock,
	)
	if err := conn.WithContext(ctx).Raw(query, customerID).Scan(&wallet).Error; err != nil {
		return nil, err
	}
	if wallet.ID == 0 {
		return nil, nil
	}
	return &wallet, nil
}

func (r *repo) UpdateBalance(ctx context.Context, conn *gorm.DB, walletID snowflake.ID, fromCents, toCents int64) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance_cents = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND balance_cents = ?`,
		toCents,
		walletID,
		fromCents,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertTransaction(ctx context.Context, conn *gorm.DB, txn *walletdomain.WalletTransaction) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO wallet_transactions (
			id, wallet_id, customer_id, type, delta_cents, balance_after_cents,
			description, reference_type, reference_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.WalletID,
		txn.CustomerID,
		string(txn.Type),
		txn.DeltaCents,
		txn.BalanceAfterCents,
		txn.Description,
		txn.ReferenceType,
		txn.ReferenceID,
		txn.CreatedAt,
	).Error
}

func (r *repo) ListTransactions(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, limit int) ([]walletdomain.WalletTransaction, error) {
	var items []walletdomain.WalletTransaction
	err := conn.WithContext(ctx).Raw(
		`SELECT id, wallet_id, customer_id, type, delta_cents, balance_after_cents,
		 description, reference_type, reference_id, created_at
		 FROM wallet_transactions
		 WHERE customer_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		customerID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
