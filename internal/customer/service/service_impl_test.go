package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	customerrepo "github.com/smallbiznis/milkrun/internal/customer/repository"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	walletrepo "github.com/smallbiznis/milkrun/internal/wallet/repository"
	walletservice "github.com/smallbiznis/milkrun/internal/wallet/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubResolver struct {
	rates map[int]pricingdomain.Rate
}

func (s stubResolver) Resolve(_ context.Context, quantityML int) (pricingdomain.Rate, error) {
	rate, ok := s.rates[quantityML]
	if !ok {
		return pricingdomain.Rate{}, pricingdomain.ErrUnsupportedQuantity
	}
	return rate, nil
}

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	customers customerdomain.Service
	wallets   walletdomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&customerdomain.Customer{},
		&subscriptiondomain.Subscription{},
		&walletdomain.Wallet{},
		&walletdomain.WalletTransaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	log := zap.NewNop()

	wallets := walletservice.NewService(walletservice.ServiceParam{
		DB: db, Log: log, GenID: node, Repo: walletrepo.Provide(),
	})
	customers := NewService(ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      customerrepo.Provide(),
		WalletSvc: wallets,
		Pricing: stubResolver{rates: map[int]pricingdomain.Rate{
			1000: {QuantityML: 1000, DailyPriceCents: 11000, LargeDepositCents: 5000, SmallDepositCents: 3000},
		}},
	})

	return &fixture{db: db, node: node, customers: customers, wallets: wallets}
}

// onboard walks a fresh customer up to PENDING_APPROVAL with a funded
// wallet and a 1000ml subscription.
func (f *fixture) onboard(t *testing.T, balanceCents int64) *customerdomain.Customer {
	t.Helper()
	ctx := context.Background()

	customer, err := f.customers.Register(ctx, customerdomain.RegisterRequest{Name: "Asha", Phone: "555-0101"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.customers.CompleteProfile(ctx, customer.ID, customerdomain.CompleteProfileRequest{Address: "12 Hill Rd"}); err != nil {
		t.Fatalf("complete profile: %v", err)
	}

	if err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.wallets.CreateWallet(ctx, tx, customer.ID)
		return err
	}); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balanceCents > 0 {
		if _, err := f.wallets.TopUp(ctx, walletdomain.TopUpRequest{CustomerID: customer.ID, AmountCents: balanceCents}); err != nil {
			t.Fatalf("top up: %v", err)
		}
	}
	if err := f.customers.OnPaymentReceived(ctx, customer.ID); err != nil {
		t.Fatalf("payment received: %v", err)
	}

	now := time.Now().UTC()
	sub := &subscriptiondomain.Subscription{
		ID:              f.node.Generate(),
		CustomerID:      customer.ID,
		DailyQuantityML: 1000,
		DailyPriceCents: 11000,
		LargeBottles:    1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := f.db.Create(sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	got, err := f.customers.GetByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != customerdomain.StatusPendingApproval {
		t.Fatalf("status = %s, want PENDING_APPROVAL", got.Status)
	}
	return got
}

func TestRegisterStartsAsVisitor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	customer, err := f.customers.Register(ctx, customerdomain.RegisterRequest{Name: "Asha", Phone: "555-0101"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if customer.Status != customerdomain.StatusVisitor {
		t.Fatalf("status = %s, want VISITOR", customer.Status)
	}

	if _, err := f.customers.Register(ctx, customerdomain.RegisterRequest{Phone: "555-0101"}); !errors.Is(err, customerdomain.ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}

func TestCompleteProfileRequiresAddressAndOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	customer, err := f.customers.Register(ctx, customerdomain.RegisterRequest{Name: "Asha", Phone: "555-0101"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.customers.CompleteProfile(ctx, customer.ID, customerdomain.CompleteProfileRequest{}); !errors.Is(err, customerdomain.ErrInvalidCustomer) {
		t.Fatalf("err = %v, want ErrInvalidCustomer", err)
	}

	updated, err := f.customers.CompleteProfile(ctx, customer.ID, customerdomain.CompleteProfileRequest{Address: "12 Hill Rd"})
	if err != nil {
		t.Fatalf("complete profile: %v", err)
	}
	if updated.Status != customerdomain.StatusPendingPayment {
		t.Fatalf("status = %s, want PENDING_PAYMENT", updated.Status)
	}

	// The profile step only runs once.
	if _, err := f.customers.CompleteProfile(ctx, customer.ID, customerdomain.CompleteProfileRequest{Address: "12 Hill Rd"}); !errors.Is(err, customerdomain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestAssignChargesDepositAndActivates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customer := f.onboard(t, 20000)

	person := f.node.Generate()
	updated, err := f.customers.AssignDeliveryPerson(ctx, customerdomain.AssignRequest{
		CustomerID:       customer.ID,
		DeliveryPersonID: person,
		StartDate:        "2026-03-22",
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.Status != customerdomain.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", updated.Status)
	}
	if updated.DeliveryPersonID == nil || *updated.DeliveryPersonID != person {
		t.Fatalf("delivery person not recorded")
	}

	// One large bottle at a 5000 deposit.
	balance, err := f.wallets.Balance(ctx, customer.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 15000 {
		t.Fatalf("balance = %d, want 15000", balance)
	}

	history, err := f.wallets.History(ctx, customer.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history[0].Type != walletdomain.TxnDeposit || history[0].DeltaCents != -5000 {
		t.Fatalf("latest txn = %s %d, want DEPOSIT -5000", history[0].Type, history[0].DeltaCents)
	}
}

func TestAssignShortfallRollsBackLedger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customer := f.onboard(t, 4000)

	_, err := f.customers.AssignDeliveryPerson(ctx, customerdomain.AssignRequest{
		CustomerID:       customer.ID,
		DeliveryPersonID: f.node.Generate(),
		StartDate:        "2026-03-22",
	})
	var shortfall *customerdomain.InsufficientBalanceError
	if !errors.As(err, &shortfall) {
		t.Fatalf("err = %v, want InsufficientBalanceError", err)
	}
	if shortfall.RequiredCents != 5000 || shortfall.BalanceCents != 4000 || shortfall.ShortfallCents != 1000 {
		t.Fatalf("shortfall = %+v", shortfall)
	}

	// The rejected deposit must leave neither a balance change nor a
	// ledger entry behind.
	balance, err := f.wallets.Balance(ctx, customer.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 4000 {
		t.Fatalf("balance = %d, want 4000 after rollback", balance)
	}
	history, err := f.wallets.History(ctx, customer.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, txn := range history {
		if txn.Type == walletdomain.TxnDeposit {
			t.Fatalf("deposit entry survived the rollback")
		}
	}

	got, err := f.customers.GetByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != customerdomain.StatusPendingApproval {
		t.Fatalf("status = %s, want PENDING_APPROVAL", got.Status)
	}
}

func TestAssignRequiresApprovalStage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	customer, err := f.customers.Register(ctx, customerdomain.RegisterRequest{Name: "Asha", Phone: "555-0101"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = f.customers.AssignDeliveryPerson(ctx, customerdomain.AssignRequest{
		CustomerID:       customer.ID,
		DeliveryPersonID: f.node.Generate(),
		StartDate:        "2026-03-22",
	})
	if !errors.Is(err, customerdomain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestUnassignReturnsToApproval(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customer := f.onboard(t, 20000)

	if _, err := f.customers.AssignDeliveryPerson(ctx, customerdomain.AssignRequest{
		CustomerID:       customer.ID,
		DeliveryPersonID: f.node.Generate(),
		StartDate:        "2026-03-22",
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := f.customers.UnassignDeliveryPerson(ctx, customer.ID)
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if updated.Status != customerdomain.StatusPendingApproval {
		t.Fatalf("status = %s, want PENDING_APPROVAL", updated.Status)
	}
	if updated.DeliveryPersonID != nil || updated.AssignmentStartDate != nil {
		t.Fatalf("assignment fields not cleared")
	}
}

func TestBalanceFlipsActiveInactive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customer := f.onboard(t, 5000)

	if _, err := f.customers.AssignDeliveryPerson(ctx, customerdomain.AssignRequest{
		CustomerID:       customer.ID,
		DeliveryPersonID: f.node.Generate(),
		StartDate:        "2026-03-22",
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	debit := func(deltaCents int64) {
		t.Helper()
		if err := f.db.Transaction(func(tx *gorm.DB) error {
			if _, err := f.wallets.ApplyDelta(ctx, tx, customer.ID, deltaCents, walletdomain.TxnAdjustment, "test debt", nil); err != nil {
				return err
			}
			return f.customers.SyncStatusForBalance(ctx, tx, customer.ID)
		}); err != nil {
			t.Fatalf("debit: %v", err)
		}
	}

	// Exactly one day's charge in debt is still within the grace period.
	debit(-11000)
	got, err := f.customers.GetByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != customerdomain.StatusActive {
		t.Fatalf("status = %s, want ACTIVE at -11000", got.Status)
	}

	// One more cent crosses it.
	debit(-1)
	got, err = f.customers.GetByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != customerdomain.StatusInactive {
		t.Fatalf("status = %s, want INACTIVE past the grace period", got.Status)
	}

	// A confirmed payment brings them straight back.
	if _, err := f.wallets.TopUp(ctx, walletdomain.TopUpRequest{CustomerID: customer.ID, AmountCents: 20000}); err != nil {
		t.Fatalf("top up: %v", err)
	}
	if err := f.customers.OnPaymentReceived(ctx, customer.ID); err != nil {
		t.Fatalf("payment received: %v", err)
	}

	got, err = f.customers.GetByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != customerdomain.StatusActive {
		t.Fatalf("status = %s, want ACTIVE after recovery", got.Status)
	}
}
