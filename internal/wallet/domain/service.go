package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type TopUpRequest struct {
	CustomerID  snowflake.ID
	AmountCents int64
	Description string
	Reference   *Reference
}

type Service interface {
	// CreateWallet inserts the customer's wallet inside the caller's
	// transaction; subscriptions and wallets are created together.
	CreateWallet(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (*Wallet, error)

	// ApplyDelta updates the balance and appends the ledger row as one
	// unit inside the caller's transaction. It never rejects on a
	// negative result; callers decide what a negative balance means.
	ApplyDelta(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, deltaCents int64, txnType TransactionType, description string, ref *Reference) (int64, error)

	// TopUp credits the wallet in its own transaction. Called only after
	// the payment boundary has confirmed funds.
	TopUp(ctx context.Context, req TopUpRequest) (int64, error)

	Balance(ctx context.Context, customerID snowflake.ID) (int64, error)
	History(ctx context.Context, customerID snowflake.ID, limit int) ([]WalletTransaction, error)
}
