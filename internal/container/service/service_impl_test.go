package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/milkrun/internal/clock"
	containerdomain "github.com/smallbiznis/milkrun/internal/container/domain"
	containerrepo "github.com/smallbiznis/milkrun/internal/container/repository"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	walletrepo "github.com/smallbiznis/milkrun/internal/wallet/repository"
	walletservice "github.com/smallbiznis/milkrun/internal/wallet/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type containerFixture struct {
	svc        containerdomain.Service
	walletSvc  walletdomain.Service
	db         *gorm.DB
	fc         *clock.FakeClock
	customerID snowflake.ID
}

func setupContainers(t *testing.T) *containerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&containerdomain.ContainerLedgerEntry{},
		&containerdomain.ContainerBalance{},
		&walletdomain.Wallet{},
		&walletdomain.WalletTransaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fc := clock.NewFakeClock(time.Date(2026, time.March, 21, 10, 0, 0, 0, time.UTC))
	zone, err := clock.NewZone(fc, "UTC", 19)
	if err != nil {
		t.Fatalf("zone: %v", err)
	}

	walletSvc := walletservice.NewService(walletservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  walletrepo.Provide(),
	})
	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Zone:      zone,
		Repo:      containerrepo.Provide(),
		WalletSvc: walletSvc,
	})

	customerID := node.Generate()
	if _, err := walletSvc.CreateWallet(context.Background(), db, customerID); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return &containerFixture{svc: svc, walletSvc: walletSvc, db: db, fc: fc, customerID: customerID}
}

func TestIssueReturnFoldsBalance(t *testing.T) {
	f := setupContainers(t)
	ctx := context.Background()

	if _, err := f.svc.Issue(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 2}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := f.svc.Issue(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeSmall, Quantity: 1}); err != nil {
		t.Fatalf("issue small: %v", err)
	}
	entry, err := f.svc.Return(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 1})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if entry.BalanceAfter != 1 {
		t.Fatalf("balance after = %d, want 1", entry.BalanceAfter)
	}

	balances, err := f.svc.Balances(ctx, f.customerID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if balances.Large != 1 || balances.Small != 1 {
		t.Fatalf("balances = %+v", balances)
	}

	// Balance equals the ledger fold.
	history, err := f.svc.History(ctx, f.customerID, 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	fold := map[containerdomain.SizeClass]int{}
	for _, e := range history {
		switch e.Action {
		case containerdomain.ActionIssued:
			fold[e.SizeClass] += e.Quantity
		default:
			fold[e.SizeClass] -= e.Quantity
		}
	}
	if fold[containerdomain.SizeLarge] != balances.Large || fold[containerdomain.SizeSmall] != balances.Small {
		t.Fatalf("fold %v diverges from balances %+v", fold, balances)
	}
}

func TestReturnExceedingBalanceRejected(t *testing.T) {
	f := setupContainers(t)
	ctx := context.Background()

	if _, err := f.svc.Issue(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 1}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err := f.svc.Return(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 2})
	if !errors.Is(err, containerdomain.ErrExceedsBalance) {
		t.Fatalf("err = %v, want ErrExceedsBalance", err)
	}
	var exceeds *containerdomain.ExceedsBalanceError
	if !errors.As(err, &exceeds) {
		t.Fatalf("expected structured error, got %T", err)
	}
	if exceeds.Outstanding != 1 || exceeds.Requested != 2 {
		t.Fatalf("detail = %+v", exceeds)
	}

	balances, err := f.svc.Balances(ctx, f.customerID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if balances.Large != 1 {
		t.Fatalf("balance mutated to %d", balances.Large)
	}
}

func TestImposePenaltySettlesAndDebitsAtomically(t *testing.T) {
	f := setupContainers(t)
	ctx := context.Background()

	if _, err := f.svc.Issue(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 2}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	err := f.svc.ImposePenalty(ctx, containerdomain.PenaltyRequest{
		CustomerID: f.customerID,
		FineCents:  5000,
		LargeCount: 2,
	})
	if err != nil {
		t.Fatalf("impose penalty: %v", err)
	}

	balances, err := f.svc.Balances(ctx, f.customerID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if balances.Large != 0 {
		t.Fatalf("large balance = %d, want 0", balances.Large)
	}
	walletBalance, err := f.walletSvc.Balance(ctx, f.customerID)
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	if walletBalance != -5000 {
		t.Fatalf("wallet = %d, want -5000", walletBalance)
	}
}

func TestImposePenaltyBeyondOutstandingRollsBackWallet(t *testing.T) {
	f := setupContainers(t)
	ctx := context.Background()

	if _, err := f.svc.Issue(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 1}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	err := f.svc.ImposePenalty(ctx, containerdomain.PenaltyRequest{
		CustomerID: f.customerID,
		FineCents:  5000,
		LargeCount: 3,
	})
	if !errors.Is(err, containerdomain.ErrExceedsBalance) {
		t.Fatalf("err = %v, want ErrExceedsBalance", err)
	}

	walletBalance, err := f.walletSvc.Balance(ctx, f.customerID)
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	if walletBalance != 0 {
		t.Fatalf("wallet = %d, want untouched 0", walletBalance)
	}
}

func TestListOverdueUsesThreshold(t *testing.T) {
	f := setupContainers(t)
	ctx := context.Background()

	if _, err := f.svc.Issue(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 2}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	overdue, err := f.svc.ListOverdue(ctx, 7)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("fresh issue flagged: %+v", overdue)
	}

	f.fc.Advance(8 * 24 * time.Hour)
	overdue, err = f.svc.ListOverdue(ctx, 7)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("flags = %d, want 1", len(overdue))
	}
	if overdue[0].CustomerID != f.customerID || overdue[0].Large != 2 {
		t.Fatalf("flag = %+v", overdue[0])
	}
	if overdue[0].DaysOverdue < 8 {
		t.Fatalf("days overdue = %d, want >= 8", overdue[0].DaysOverdue)
	}

	// A full return clears the flag.
	if _, err := f.svc.Return(ctx, containerdomain.MoveRequest{CustomerID: f.customerID, SizeClass: containerdomain.SizeLarge, Quantity: 2}); err != nil {
		t.Fatalf("return: %v", err)
	}
	overdue, err = f.svc.ListOverdue(ctx, 7)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("cleared balance still flagged: %+v", overdue)
	}
}
