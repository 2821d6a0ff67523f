package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, wallet *Wallet) error
	FindByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Wallet, error)
	FindByCustomerForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Wallet, error)
	// UpdateBalance is guarded by the expected previous balance so a lost
	// race surfaces as zero rows affected instead of a silent overwrite.
	UpdateBalance(ctx context.Context, db *gorm.DB, walletID snowflake.ID, fromCents, toCents int64) (bool, error)
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *WalletTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, customerID snowflake.ID, limit int) ([]WalletTransaction, error)
}
