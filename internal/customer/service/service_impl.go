package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      customerdomain.Repository
	WalletSvc walletdomain.Service
	Pricing   pricingdomain.Resolver
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      customerdomain.Repository
	walletSvc walletdomain.Service
	pricing   pricingdomain.Resolver
}

func NewService(p ServiceParam) customerdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("customer.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		walletSvc: p.WalletSvc,
		pricing:   p.Pricing,
	}
}

func (s *Service) Register(ctx context.Context, req customerdomain.RegisterRequest) (*customerdomain.Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, customerdomain.ErrInvalidName
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, customerdomain.ErrInvalidPhone
	}

	now := time.Now().UTC()
	customer := &customerdomain.Customer{
		ID:        s.genID.Generate(),
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Status:    customerdomain.StatusVisitor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) CompleteProfile(ctx context.Context, id snowflake.ID, req customerdomain.CompleteProfileRequest) (*customerdomain.Customer, error) {
	if strings.TrimSpace(req.Address) == "" {
		return nil, customerdomain.ErrInvalidCustomer
	}

	var out *customerdomain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		if !customerdomain.CanTransition(customer.Status, customerdomain.StatusPendingPayment) {
			return customerdomain.ErrInvalidTransition
		}

		if name := strings.TrimSpace(req.Name); name != "" {
			customer.Name = name
		}
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			customer.Phone = phone
		}
		customer.Address = strings.TrimSpace(req.Address)
		customer.Status = customerdomain.StatusPendingPayment
		customer.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, customer); err != nil {
			return err
		}
		out = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) OnPaymentReceived(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}

		switch customer.Status {
		case customerdomain.StatusPendingPayment:
			customer.Status = customerdomain.StatusPendingApproval
			customer.UpdatedAt = time.Now().UTC()
			return s.repo.Update(ctx, tx, customer)
		case customerdomain.StatusInactive:
			return s.SyncStatusForBalance(ctx, tx, id)
		default:
			return nil
		}
	})
}

func (s *Service) AssignDeliveryPerson(ctx context.Context, req customerdomain.AssignRequest) (*customerdomain.Customer, error) {
	if req.DeliveryPersonID == 0 {
		return nil, customerdomain.ErrInvalidPerson
	}

	var out *customerdomain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindByIDForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		if !customerdomain.CanTransition(customer.Status, customerdomain.StatusActive) {
			return customerdomain.ErrInvalidTransition
		}

		sub, err := s.subscriptionFor(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if sub == nil {
			return customerdomain.ErrMissingSubscription
		}

		rate, err := s.pricing.Resolve(ctx, sub.DailyQuantityML)
		if err != nil {
			return err
		}
		deposit := rate.DepositFor(sub.LargeBottles, sub.SmallBottles)

		if deposit > 0 {
			newBalance, err := s.walletSvc.ApplyDelta(
				ctx, tx, req.CustomerID, -deposit, walletdomain.TxnDeposit,
				"container deposit on assignment", nil,
			)
			if err != nil {
				return err
			}
			// The deposit must not push the customer into debt; rolling
			// back here undoes the ledger append with it.
			if newBalance < 0 {
				return &customerdomain.InsufficientBalanceError{
					RequiredCents:  deposit,
					BalanceCents:   newBalance + deposit,
					ShortfallCents: -newBalance,
				}
			}
		}

		personID := req.DeliveryPersonID
		startDate := req.StartDate
		customer.DeliveryPersonID = &personID
		customer.AssignmentStartDate = &startDate
		customer.Status = customerdomain.StatusActive
		customer.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, customer); err != nil {
			return err
		}
		out = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UnassignDeliveryPerson(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error) {
	var out *customerdomain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		if !customerdomain.CanTransition(customer.Status, customerdomain.StatusPendingApproval) {
			return customerdomain.ErrInvalidTransition
		}

		customer.DeliveryPersonID = nil
		customer.AssignmentStartDate = nil
		customer.Status = customerdomain.StatusPendingApproval
		customer.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, customer); err != nil {
			return err
		}
		out = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SyncStatusForBalance flips ACTIVE <-> INACTIVE around the grace
// threshold: one day's charge at the subscription's current daily rate.
func (s *Service) SyncStatusForBalance(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	customer, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if customer == nil {
		return customerdomain.ErrNotFound
	}
	if customer.Status != customerdomain.StatusActive && customer.Status != customerdomain.StatusInactive {
		return nil
	}

	sub, err := s.subscriptionFor(ctx, tx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}

	var balance int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT balance_cents FROM wallets WHERE customer_id = ?`, id,
	).Scan(&balance).Error; err != nil {
		return err
	}

	target := customer.Status
	if balance < -sub.DailyPriceCents {
		target = customerdomain.StatusInactive
	} else {
		target = customerdomain.StatusActive
	}
	if target == customer.Status {
		return nil
	}

	customer.Status = target
	customer.UpdatedAt = time.Now().UTC()
	s.log.Info("customer status synced to balance",
		zap.String("customer_id", id.String()),
		zap.String("status", string(target)),
		zap.Int64("balance_cents", balance),
	)
	return s.repo.Update(ctx, tx, customer)
}

type subscriptionRow struct {
	DailyQuantityML int
	DailyPriceCents int64
	LargeBottles    int
	SmallBottles    int
}

func (s *Service) subscriptionFor(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (*subscriptionRow, error) {
	var sub subscriptionRow
	err := tx.WithContext(ctx).Raw(
		`SELECT daily_quantity_ml, daily_price_cents, large_bottles, small_bottles
		 FROM subscriptions WHERE customer_id = ?`,
		customerID,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.DailyQuantityML == 0 {
		return nil, nil
	}
	return &sub, nil
}
