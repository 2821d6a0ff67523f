// Package domain contains the prepaid wallet and its append-only
// transaction ledger. The balance is always the fold of the ledger: every
// balance-changing operation appends exactly one transaction row.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TransactionType classifies a ledger entry by what caused it.
type TransactionType string

const (
	TxnTopUp          TransactionType = "TOPUP"
	TxnDeliveryCharge TransactionType = "DELIVERY_CHARGE"
	TxnDeposit        TransactionType = "DEPOSIT"
	TxnPlanChange     TransactionType = "PLAN_CHANGE"
	TxnPenalty        TransactionType = "PENALTY"
	TxnRefund         TransactionType = "REFUND"
	TxnAdjustment     TransactionType = "ADJUSTMENT"
)

// Wallet is one per customer. The balance may be negative; the grace
// period is a caller concern, not a ledger one.
type Wallet struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID   snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:ux_wallets_customer"`
	BalanceCents int64        `json:"balance_cents" gorm:"not null;default:0"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Wallet) TableName() string { return "wallets" }

// WalletTransaction is an immutable ledger entry. BalanceAfterCents must
// equal the previous entry's balance plus DeltaCents.
type WalletTransaction struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	WalletID          snowflake.ID    `json:"wallet_id" gorm:"not null;index"`
	CustomerID        snowflake.ID    `json:"customer_id" gorm:"not null;index"`
	Type              TransactionType `json:"type" gorm:"type:text;not null"`
	DeltaCents        int64           `json:"delta_cents" gorm:"not null"`
	BalanceAfterCents int64           `json:"balance_after_cents" gorm:"not null"`
	Description       string          `json:"description" gorm:"type:text;not null"`
	ReferenceType     *string         `json:"reference_type,omitempty" gorm:"type:text"`
	ReferenceID       *snowflake.ID   `json:"reference_id,omitempty" gorm:""`
	CreatedAt         time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WalletTransaction) TableName() string { return "wallet_transactions" }

// Reference links a transaction to the entity that caused it.
type Reference struct {
	Type string
	ID   snowflake.ID
}

var (
	ErrInvalidCustomer        = errors.New("invalid_customer")
	ErrInvalidDelta           = errors.New("invalid_delta")
	ErrInvalidTransactionType = errors.New("invalid_transaction_type")
	ErrInvalidAmount          = errors.New("invalid_amount")
	ErrWalletNotFound         = errors.New("wallet_not_found")
	ErrWalletExists           = errors.New("wallet_exists")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
