package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
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
	Zone      *clock.Zone
	Repo      subscriptiondomain.Repository
	WalletSvc walletdomain.Service
	Pricing   pricingdomain.Resolver
	Billing   subscriptiondomain.BillingRecomputer
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	zone      *clock.Zone
	repo      subscriptiondomain.Repository
	walletSvc walletdomain.Service
	pricing   pricingdomain.Resolver
	billing   subscriptiondomain.BillingRecomputer
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("subscription.service"),
		genID:     p.GenID,
		zone:      p.Zone,
		repo:      p.Repo,
		walletSvc: p.WalletSvc,
		pricing:   p.Pricing,
		billing:   p.Billing,
	}
}

func (s *Service) Subscribe(ctx context.Context, req subscriptiondomain.SubscribeRequest) (*subscriptiondomain.Subscription, error) {
	if req.CustomerID == 0 {
		return nil, subscriptiondomain.ErrInvalidCustomer
	}

	rate, err := s.pricing.Resolve(ctx, req.QuantityML)
	if err != nil {
		return nil, err
	}
	large, small := pricingdomain.BottleSplit(req.QuantityML)

	now := time.Now().UTC()
	sub := &subscriptiondomain.Subscription{
		ID:              s.genID.Generate(),
		CustomerID:      req.CustomerID,
		DailyQuantityML: req.QuantityML,
		DailyPriceCents: rate.DailyPriceCents,
		LargeBottles:    large,
		SmallBottles:    small,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			return err
		}
		if _, err := s.walletSvc.CreateWallet(ctx, tx, req.CustomerID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription created",
		zap.String("customer_id", req.CustomerID.String()),
		zap.Int("quantity_ml", req.QuantityML),
		zap.Int64("daily_price_cents", rate.DailyPriceCents),
	)
	return sub, nil
}

func (s *Service) GetByCustomer(ctx context.Context, customerID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	sub, err := s.repo.FindByCustomer(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, subscriptiondomain.ErrNotFound
	}
	return sub, nil
}

// ChangePlan prices the switch over the remaining days of the current
// month. The old rate is the subscription's own snapshot, not the live
// tier, so a customer is never charged for tier edits they predate.
func (s *Service) ChangePlan(ctx context.Context, req subscriptiondomain.ChangePlanRequest) (*subscriptiondomain.ChangePlanResult, error) {
	if req.CustomerID == 0 {
		return nil, subscriptiondomain.ErrInvalidCustomer
	}

	newRate, err := s.pricing.Resolve(ctx, req.NewQuantityML)
	if err != nil {
		return nil, err
	}

	var result *subscriptiondomain.ChangePlanResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.repo.FindByCustomerForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if sub == nil {
			return subscriptiondomain.ErrNotFound
		}
		if sub.DailyQuantityML == req.NewQuantityML {
			return subscriptiondomain.ErrSamePlan
		}

		now := s.zone.Now()
		remainingDays := clock.DaysInMonth(now.Year(), now.Month()) - now.Day()
		costDiff := (newRate.DailyPriceCents - sub.DailyPriceCents) * int64(remainingDays)

		balance, err := s.walletSvc.Balance(ctx, req.CustomerID)
		if err != nil {
			return err
		}

		due := costDiff
		if balance > 0 {
			due -= balance
		}
		if due > 0 {
			result = &subscriptiondomain.ChangePlanResult{
				Applied:        false,
				AmountDueCents: due,
				CostDiffCents:  costDiff,
				RemainingDays:  remainingDays,
				Subscription:   sub,
			}
			return nil
		}

		newBalance := balance
		if costDiff != 0 {
			newBalance, err = s.walletSvc.ApplyDelta(
				ctx, tx, req.CustomerID, -costDiff, walletdomain.TxnPlanChange,
				fmt.Sprintf("plan change %dml -> %dml, %d days remaining", sub.DailyQuantityML, req.NewQuantityML, remainingDays),
				&walletdomain.Reference{Type: "subscription", ID: sub.ID},
			)
			if err != nil {
				return err
			}
		}

		large, small := pricingdomain.BottleSplit(req.NewQuantityML)
		sub.DailyQuantityML = req.NewQuantityML
		sub.DailyPriceCents = newRate.DailyPriceCents
		sub.LargeBottles = large
		sub.SmallBottles = small
		sub.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}

		// The persisted monthly total must track the new rate in the
		// same transaction, not wait for the next reconcile tick.
		if err := s.billing.Recompute(ctx, tx, req.CustomerID, now.Year(), int(now.Month()), newRate.DailyPriceCents); err != nil {
			return err
		}

		result = &subscriptiondomain.ChangePlanResult{
			Applied:         true,
			CostDiffCents:   costDiff,
			RemainingDays:   remainingDays,
			NewBalanceCents: newBalance,
			Subscription:    sub,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.log.Info("plan changed",
			zap.String("customer_id", req.CustomerID.String()),
			zap.Int("quantity_ml", req.NewQuantityML),
			zap.Int64("cost_diff_cents", result.CostDiffCents),
		)
	}
	return result, nil
}
