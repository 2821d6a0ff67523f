package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	walletrepo "github.com/smallbiznis/milkrun/internal/wallet/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupWallet(t *testing.T) (walletdomain.Service, *gorm.DB, snowflake.ID) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&walletdomain.Wallet{}, &walletdomain.WalletTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  walletrepo.Provide(),
	})

	customerID := node.Generate()
	if _, err := svc.CreateWallet(context.Background(), db, customerID); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return svc, db, customerID
}

func TestBalanceEqualsLedgerFold(t *testing.T) {
	svc, db, customerID := setupWallet(t)
	ctx := context.Background()

	deltas := []struct {
		delta   int64
		txnType walletdomain.TransactionType
	}{
		{50000, walletdomain.TxnTopUp},
		{-11000, walletdomain.TxnDeliveryCharge},
		{-8000, walletdomain.TxnDeposit},
		{-11000, walletdomain.TxnDeliveryCharge},
		{-25000, walletdomain.TxnDeliveryCharge},
	}
	for _, d := range deltas {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.ApplyDelta(ctx, tx, customerID, d.delta, d.txnType, "test", nil)
			return err
		})
		if err != nil {
			t.Fatalf("apply %d: %v", d.delta, err)
		}
	}

	balance, err := svc.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	// Negative balances are valid; the grace period lives on top of them.
	if balance != -5000 {
		t.Fatalf("balance = %d, want -5000", balance)
	}

	history, err := svc.History(ctx, customerID, 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != len(deltas) {
		t.Fatalf("entries = %d, want %d", len(history), len(deltas))
	}
	var fold int64
	for _, txn := range history {
		fold += txn.DeltaCents
	}
	if fold != balance {
		t.Fatalf("fold %d diverges from balance %d", fold, balance)
	}
}

func TestBalanceAfterChainsInOrder(t *testing.T) {
	svc, db, customerID := setupWallet(t)
	ctx := context.Background()

	for _, delta := range []int64{10000, -3000, -4000, 2000} {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.ApplyDelta(ctx, tx, customerID, delta, walletdomain.TxnAdjustment, "test", nil)
			return err
		})
		if err != nil {
			t.Fatalf("apply %d: %v", delta, err)
		}
	}

	// History is newest first; walk it oldest first.
	history, err := svc.History(ctx, customerID, 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var running int64
	for i := len(history) - 1; i >= 0; i-- {
		running += history[i].DeltaCents
		if history[i].BalanceAfterCents != running {
			t.Fatalf("entry %d: balance_after = %d, want %d", i, history[i].BalanceAfterCents, running)
		}
	}
}

func TestApplyDeltaValidation(t *testing.T) {
	svc, db, customerID := setupWallet(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ApplyDelta(ctx, tx, customerID, 0, walletdomain.TxnTopUp, "zero", nil)
		return err
	})
	if !errors.Is(err, walletdomain.ErrInvalidDelta) {
		t.Fatalf("err = %v, want ErrInvalidDelta", err)
	}

	node, _ := snowflake.NewNode(2)
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ApplyDelta(ctx, tx, node.Generate(), 100, walletdomain.TxnTopUp, "no wallet", nil)
		return err
	})
	if !errors.Is(err, walletdomain.ErrWalletNotFound) {
		t.Fatalf("err = %v, want ErrWalletNotFound", err)
	}
}

func TestTopUpRejectsNonPositive(t *testing.T) {
	svc, _, customerID := setupWallet(t)

	_, err := svc.TopUp(context.Background(), walletdomain.TopUpRequest{CustomerID: customerID, AmountCents: -100})
	if !errors.Is(err, walletdomain.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestConcurrentTopUpsAllLand(t *testing.T) {
	svc, _, customerID := setupWallet(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A lost race is surfaced as ErrConcurrentModification for
			// the caller to retry.
			for {
				_, err := svc.TopUp(ctx, walletdomain.TopUpRequest{CustomerID: customerID, AmountCents: 1000})
				if errors.Is(err, walletdomain.ErrConcurrentModification) {
					continue
				}
				errs <- err
				return
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("top up: %v", err)
		}
	}

	balance, err := svc.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != workers*1000 {
		t.Fatalf("balance = %d, want %d", balance, workers*1000)
	}
}
