package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  walletdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  walletdomain.Repository
}

func NewService(p ServiceParam) walletdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("wallet.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) CreateWallet(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (*walletdomain.Wallet, error) {
	if customerID == 0 {
		return nil, walletdomain.ErrInvalidCustomer
	}
	now := time.Now().UTC()
	wallet := &walletdomain.Wallet{
		ID:           s.genID.Generate(),
		CustomerID:   customerID,
		BalanceCents: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, tx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// ApplyDelta serializes on the wallet row: the lock plus the guarded
// balance update mean two concurrent debits can never both fold from the
// same stale balance. A lost race returns ErrConcurrentModification and the
// caller's transaction rolls back whole.
func (s *Service) ApplyDelta(
	ctx context.Context,
	tx *gorm.DB,
	customerID snowflake.ID,
	deltaCents int64,
	txnType walletdomain.TransactionType,
	description string,
	ref *walletdomain.Reference,
) (int64, error) {
	if customerID == 0 {
		return 0, walletdomain.ErrInvalidCustomer
	}
	if deltaCents == 0 {
		return 0, walletdomain.ErrInvalidDelta
	}
	if strings.TrimSpace(string(txnType)) == "" {
		return 0, walletdomain.ErrInvalidTransactionType
	}

	wallet, err := s.repo.FindByCustomerForUpdate(ctx, tx, customerID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, walletdomain.ErrWalletNotFound
	}

	newBalance := wallet.BalanceCents + deltaCents
	updated, err := s.repo.UpdateBalance(ctx, tx, wallet.ID, wallet.BalanceCents, newBalance)
	if err != nil {
		return 0, err
	}
	if !updated {
		return 0, walletdomain.ErrConcurrentModification
	}

	txn := &walletdomain.WalletTransaction{
		ID:                s.genID.Generate(),
		WalletID:          wallet.ID,
		CustomerID:        customerID,
		Type:              txnType,
		DeltaCents:        deltaCents,
		BalanceAfterCents: newBalance,
		Description:       description,
		CreatedAt:         time.Now().UTC(),
	}
	if ref != nil {
		refType := ref.Type
		refID := ref.ID
		txn.ReferenceType = &refType
		txn.ReferenceID = &refID
	}
	if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *Service) TopUp(ctx context.Context, req walletdomain.TopUpRequest) (int64, error) {
	if req.AmountCents <= 0 {
		return 0, walletdomain.ErrInvalidAmount
	}
	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = "wallet top-up"
	}

	var newBalance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		newBalance, err = s.ApplyDelta(ctx, tx, req.CustomerID, req.AmountCents, walletdomain.TxnTopUp, description, req.Reference)
		return err
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *Service) Balance(ctx context.Context, customerID snowflake.ID) (int64, error) {
	wallet, err := s.repo.FindByCustomer(ctx, s.db, customerID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, walletdomain.ErrWalletNotFound
	}
	return wallet.BalanceCents, nil
}

func (s *Service) History(ctx context.Context, customerID snowflake.ID, limit int) ([]walletdomain.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListTransactions(ctx, s.db, customerID, limit)
}
