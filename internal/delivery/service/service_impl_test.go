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
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	customerrepo "github.com/smallbiznis/milkrun/internal/customer/repository"
	customerservice "github.com/smallbiznis/milkrun/internal/customer/service"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	deliveryrepo "github.com/smallbiznis/milkrun/internal/delivery/repository"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	walletrepo "github.com/smallbiznis/milkrun/internal/wallet/repository"
	walletservice "github.com/smallbiznis/milkrun/internal/wallet/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, quantityML int) (pricingdomain.Rate, error) {
	if quantityML != 1000 {
		return pricingdomain.Rate{}, pricingdomain.ErrUnsupportedQuantity
	}
	return pricingdomain.Rate{QuantityML: 1000, DailyPriceCents: 11000, LargeDepositCents: 5000, SmallDepositCents: 3000}, nil
}

type fixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	deliveries deliverydomain.Service
	wallets    walletdomain.Service
	customers  customerdomain.Service
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
		&deliverydomain.Delivery{},
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
	customers := customerservice.NewService(customerservice.ServiceParam{
		DB: db, Log: log, GenID: node, Repo: customerrepo.Provide(),
		WalletSvc: wallets, Pricing: stubResolver{},
	})
	deliveries := NewService(ServiceParam{
		DB: db, Log: log, Repo: deliveryrepo.Provide(),
		WalletSvc: wallets, CustomerSvc: customers,
	})

	return &fixture{db: db, node: node, deliveries: deliveries, wallets: wallets, customers: customers}
}

// seedActive creates an ACTIVE assigned customer with a funded wallet and
// a 1000ml subscription, returning the customer and person IDs.
func (f *fixture) seedActive(t *testing.T, balanceCents int64) (snowflake.ID, snowflake.ID) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	customerID := f.node.Generate()
	personID := f.node.Generate()
	start := clock.Date("2026-03-01")
	if err := f.db.Create(&customerdomain.Customer{
		ID: customerID, Name: "Asha", Phone: "555-0101", Address: "12 Hill Rd",
		Status: customerdomain.StatusActive, DeliveryPersonID: &personID,
		AssignmentStartDate: &start, CreatedAt: now, UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := f.db.Create(&subscriptiondomain.Subscription{
		ID: f.node.Generate(), CustomerID: customerID,
		DailyQuantityML: 1000, DailyPriceCents: 11000, LargeBottles: 1,
		CreatedAt: now, UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	if err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.wallets.CreateWallet(ctx, tx, customerID)
		return err
	}); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balanceCents > 0 {
		if _, err := f.wallets.TopUp(ctx, walletdomain.TopUpRequest{CustomerID: customerID, AmountCents: balanceCents}); err != nil {
			t.Fatalf("top up: %v", err)
		}
	}
	return customerID, personID
}

func (f *fixture) seedDelivery(t *testing.T, customerID, personID snowflake.ID, date clock.Date) *deliverydomain.Delivery {
	t.Helper()
	now := time.Now().UTC()
	d := &deliverydomain.Delivery{
		ID: f.node.Generate(), CustomerID: customerID, DeliveryPersonID: personID,
		DeliveryDate: date, QuantityML: 1000, LargeBottles: 1,
		Status: deliverydomain.StatusScheduled, ChargeCents: 11000, DepositCents: 5000,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := f.db.Create(d).Error; err != nil {
		t.Fatalf("seed delivery: %v", err)
	}
	return d
}

func TestMarkDeliveredChargesWallet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customerID, personID := f.seedActive(t, 20000)
	f.seedDelivery(t, customerID, personID, "2026-03-21")

	row, err := f.deliveries.MarkDelivered(ctx, customerID, "2026-03-21")
	if err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if row.Status != deliverydomain.StatusDelivered {
		t.Fatalf("status = %s, want DELIVERED", row.Status)
	}

	balance, err := f.wallets.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 9000 {
		t.Fatalf("balance = %d, want 9000", balance)
	}
	history, err := f.wallets.History(ctx, customerID, 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history[0].Type != walletdomain.TxnDeliveryCharge || history[0].DeltaCents != -11000 {
		t.Fatalf("latest txn = %s %d, want DELIVERY_CHARGE -11000", history[0].Type, history[0].DeltaCents)
	}

	// A delivered row is terminal; marking it again must not double-charge.
	if _, err := f.deliveries.MarkDelivered(ctx, customerID, "2026-03-21"); !errors.Is(err, deliverydomain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	balance, _ = f.wallets.Balance(ctx, customerID)
	if balance != 9000 {
		t.Fatalf("balance = %d after repeat, want 9000", balance)
	}
}

func TestMarkNotDeliveredIsFree(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customerID, personID := f.seedActive(t, 20000)
	f.seedDelivery(t, customerID, personID, "2026-03-21")

	row, err := f.deliveries.MarkNotDelivered(ctx, customerID, "2026-03-21")
	if err != nil {
		t.Fatalf("mark not delivered: %v", err)
	}
	if row.Status != deliverydomain.StatusNotDelivered {
		t.Fatalf("status = %s, want NOT_DELIVERED", row.Status)
	}

	balance, err := f.wallets.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 20000 {
		t.Fatalf("balance = %d, want 20000 untouched", balance)
	}

	if _, err := f.deliveries.MarkDelivered(ctx, customerID, "2026-03-21"); !errors.Is(err, deliverydomain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestMarkDeliveredMissingRow(t *testing.T) {
	f := setup(t)
	customerID, _ := f.seedActive(t, 20000)

	if _, err := f.deliveries.MarkDelivered(context.Background(), customerID, "2026-03-21"); !errors.Is(err, deliverydomain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGraceThenInactiveAcrossDeliveries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customerID, personID := f.seedActive(t, 5000)
	f.seedDelivery(t, customerID, personID, "2026-03-21")
	f.seedDelivery(t, customerID, personID, "2026-03-22")

	// First charge lands at -6000: negative but within one day's rate, so
	// the customer keeps deliveries through the grace period.
	if _, err := f.deliveries.MarkDelivered(ctx, customerID, "2026-03-21"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	got, err := f.customers.GetByID(ctx, customerID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != customerdomain.StatusActive {
		t.Fatalf("status = %s, want ACTIVE in grace", got.Status)
	}

	// The second charge exceeds the grace threshold.
	if _, err := f.deliveries.MarkDelivered(ctx, customerID, "2026-03-22"); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	got, err = f.customers.GetByID(ctx, customerID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != customerdomain.StatusInactive {
		t.Fatalf("status = %s, want INACTIVE past grace", got.Status)
	}
}

func TestListForPerson(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customerID, personID := f.seedActive(t, 20000)
	otherID, otherPerson := f.seedActive(t, 20000)

	f.seedDelivery(t, customerID, personID, "2026-03-21")
	f.seedDelivery(t, otherID, otherPerson, "2026-03-21")

	rows, err := f.deliveries.ListForPerson(ctx, personID, "2026-03-21")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].CustomerID != customerID {
		t.Fatalf("rows = %+v, want just the assigned customer", rows)
	}
}
