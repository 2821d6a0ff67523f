package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	billingrepo "github.com/smallbiznis/milkrun/internal/billing/repository"
	billingservice "github.com/smallbiznis/milkrun/internal/billing/service"
	"github.com/smallbiznis/milkrun/internal/clock"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/milkrun/internal/subscription/repository"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	walletrepo "github.com/smallbiznis/milkrun/internal/wallet/repository"
	walletservice "github.com/smallbiznis/milkrun/internal/wallet/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type resolverStub struct {
	rates map[int]pricingdomain.Rate
}

func (r resolverStub) Resolve(ctx context.Context, quantityML int) (pricingdomain.Rate, error) {
	rate, ok := r.rates[quantityML]
	if !ok {
		return pricingdomain.Rate{}, pricingdomain.ErrUnsupportedQuantity
	}
	return rate, nil
}

func testRates() resolverStub {
	return resolverStub{rates: map[int]pricingdomain.Rate{
		500:  {QuantityML: 500, DailyPriceCents: 6000, LargeDepositCents: 5000, SmallDepositCents: 3000},
		1000: {QuantityML: 1000, DailyPriceCents: 11000, LargeDepositCents: 5000, SmallDepositCents: 3000},
		1500: {QuantityML: 1500, DailyPriceCents: 16500, LargeDepositCents: 5000, SmallDepositCents: 3000},
	}}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// setupPlanService pins the fake clock to 2026-03-21, so the current
// month has 10 days remaining after today.
func setupPlanService(t *testing.T) (subscriptiondomain.Service, walletdomain.Service, billingdomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&walletdomain.Wallet{},
		&walletdomain.WalletTransaction{},
		&billingdomain.MonthlyPayment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node := mustNode(t)
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
	billingSvc := billingservice.NewService(billingservice.ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Zone:      zone,
		Repo:      billingrepo.Provide(),
		SubRepo:   subscriptionrepo.Provide(),
		WalletSvc: walletSvc,
	})
	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Zone:      zone,
		Repo:      subscriptionrepo.Provide(),
		WalletSvc: walletSvc,
		Pricing:   testRates(),
		Billing:   billingSvc,
	})
	return svc, walletSvc, billingSvc, db
}

func TestChangePlanInsufficientBalanceLeavesPlanUntouched(t *testing.T) {
	svc, walletSvc, _, db := setupPlanService(t)
	ctx := context.Background()
	node := mustNode(t)
	customerID := node.Generate()

	sub, err := svc.Subscribe(ctx, subscriptiondomain.SubscribeRequest{CustomerID: customerID, QuantityML: 1000})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := walletSvc.TopUp(ctx, walletdomain.TopUpRequest{CustomerID: customerID, AmountCents: 11000}); err != nil {
		t.Fatalf("top up: %v", err)
	}

	result, err := svc.ChangePlan(ctx, subscriptiondomain.ChangePlanRequest{CustomerID: customerID, NewQuantityML: 1500})
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if result.Applied {
		t.Fatal("expected change to be withheld")
	}
	// 10 remaining days at a 5500 cent/day difference is 55000; the
	// 11000 balance covers part of it.
	if result.CostDiffCents != 55000 {
		t.Fatalf("cost diff = %d, want 55000", result.CostDiffCents)
	}
	if result.AmountDueCents != 44000 {
		t.Fatalf("amount due = %d, want 44000", result.AmountDueCents)
	}

	var current subscriptiondomain.Subscription
	if err := db.Raw(`SELECT * FROM subscriptions WHERE id = ?`, sub.ID).Scan(&current).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if current.DailyQuantityML != 1000 || current.DailyPriceCents != 11000 {
		t.Fatalf("plan mutated: %dml @ %d", current.DailyQuantityML, current.DailyPriceCents)
	}
	balance, err := walletSvc.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 11000 {
		t.Fatalf("balance = %d, want untouched 11000", balance)
	}
}

func TestChangePlanUpgradeChargesRemainingMonth(t *testing.T) {
	svc, walletSvc, _, _ := setupPlanService(t)
	ctx := context.Background()
	node := mustNode(t)
	customerID := node.Generate()

	if _, err := svc.Subscribe(ctx, subscriptiondomain.SubscribeRequest{CustomerID: customerID, QuantityML: 1000}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := walletSvc.TopUp(ctx, walletdomain.TopUpRequest{CustomerID: customerID, AmountCents: 60000}); err != nil {
		t.Fatalf("top up: %v", err)
	}

	result, err := svc.ChangePlan(ctx, subscriptiondomain.ChangePlanRequest{CustomerID: customerID, NewQuantityML: 1500})
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected change applied, amount due %d", result.AmountDueCents)
	}
	if result.NewBalanceCents != 5000 {
		t.Fatalf("new balance = %d, want 5000", result.NewBalanceCents)
	}
	if result.Subscription.DailyQuantityML != 1500 || result.Subscription.DailyPriceCents != 16500 {
		t.Fatalf("plan = %dml @ %d", result.Subscription.DailyQuantityML, result.Subscription.DailyPriceCents)
	}
	if result.Subscription.LargeBottles != 1 || result.Subscription.SmallBottles != 1 {
		t.Fatalf("bottle split = %d large %d small", result.Subscription.LargeBottles, result.Subscription.SmallBottles)
	}

	history, err := walletSvc.History(ctx, customerID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var found bool
	for _, txn := range history {
		if txn.Type == walletdomain.TxnPlanChange {
			found = true
			if txn.DeltaCents != -55000 {
				t.Fatalf("plan change delta = %d, want -55000", txn.DeltaCents)
			}
		}
	}
	if !found {
		t.Fatal("expected a PLAN_CHANGE ledger entry")
	}
}

func TestChangePlanDowngradeCreditsWallet(t *testing.T) {
	svc, walletSvc, _, _ := setupPlanService(t)
	ctx := context.Background()
	node := mustNode(t)
	customerID := node.Generate()

	if _, err := svc.Subscribe(ctx, subscriptiondomain.SubscribeRequest{CustomerID: customerID, QuantityML: 1000}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	result, err := svc.ChangePlan(ctx, subscriptiondomain.ChangePlanRequest{CustomerID: customerID, NewQuantityML: 500})
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected downgrade applied")
	}
	if result.CostDiffCents != -50000 {
		t.Fatalf("cost diff = %d, want -50000", result.CostDiffCents)
	}
	balance, err := walletSvc.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 50000 {
		t.Fatalf("balance = %d, want 50000 credit", balance)
	}
}

func TestChangePlanRecomputesMonthlyTotal(t *testing.T) {
	svc, walletSvc, billingSvc, db := setupPlanService(t)
	ctx := context.Background()
	node := mustNode(t)
	customerID := node.Generate()

	if _, err := svc.Subscribe(ctx, subscriptiondomain.SubscribeRequest{CustomerID: customerID, QuantityML: 1000}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := walletSvc.TopUp(ctx, walletdomain.TopUpRequest{CustomerID: customerID, AmountCents: 60000}); err != nil {
		t.Fatalf("top up: %v", err)
	}
	if err := billingSvc.EnsureCurrent(ctx, customerID); err != nil {
		t.Fatalf("ensure current: %v", err)
	}

	var payment billingdomain.MonthlyPayment
	load := func() {
		t.Helper()
		if err := db.Raw(
			`SELECT * FROM monthly_payments WHERE customer_id = ? AND year = 2026 AND month = 3`,
			customerID,
		).Scan(&payment).Error; err != nil {
			t.Fatalf("load payment: %v", err)
		}
	}

	// March has 31 days at 11000 cents/day before the change.
	load()
	if payment.TotalCostCents != 341000 {
		t.Fatalf("total before change = %d, want 341000", payment.TotalCostCents)
	}

	result, err := svc.ChangePlan(ctx, subscriptiondomain.ChangePlanRequest{CustomerID: customerID, NewQuantityML: 1500})
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected change applied, amount due %d", result.AmountDueCents)
	}

	// The stored total tracks the new 16500 cent/day rate immediately,
	// without waiting for a reconcile pass.
	load()
	if payment.TotalCostCents != 511500 {
		t.Fatalf("total after change = %d, want 511500", payment.TotalCostCents)
	}
	if payment.Status != billingdomain.StatusPending {
		t.Fatalf("status = %s, want PENDING", payment.Status)
	}
}

func TestChangePlanSameQuantityRejected(t *testing.T) {
	svc, _, _, _ := setupPlanService(t)
	ctx := context.Background()
	node := mustNode(t)
	customerID := node.Generate()

	if _, err := svc.Subscribe(ctx, subscriptiondomain.SubscribeRequest{CustomerID: customerID, QuantityML: 1000}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_, err := svc.ChangePlan(ctx, subscriptiondomain.ChangePlanRequest{CustomerID: customerID, NewQuantityML: 1000})
	if err != subscriptiondomain.ErrSamePlan {
		t.Fatalf("err = %v, want ErrSamePlan", err)
	}
}

func TestSubscribeTwiceRejected(t *testing.T) {
	svc, _, _, _ := setupPlanService(t)
	ctx := context.Background()
	node := mustNode(t)
	customerID := node.Generate()

	if _, err := svc.Subscribe(ctx, subscriptiondomain.SubscribeRequest{CustomerID: customerID, QuantityML: 1000}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_, err := svc.Subscribe(ctx, subscriptiondomain.SubscribeRequest{CustomerID: customerID, QuantityML: 500})
	if err != subscriptiondomain.ErrAlreadySubscribed {
		t.Fatalf("err = %v, want ErrAlreadySubscribed", err)
	}
}
