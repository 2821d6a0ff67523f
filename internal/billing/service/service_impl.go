package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
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
	Repo      billingdomain.Repository
	SubRepo   subscriptiondomain.Repository
	WalletSvc walletdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	zone      *clock.Zone
	repo      billingdomain.Repository
	subRepo   subscriptiondomain.Repository
	walletSvc walletdomain.Service
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billing.service"),
		genID:     p.GenID,
		zone:      p.Zone,
		repo:      p.Repo,
		subRepo:   p.SubRepo,
		walletSvc: p.WalletSvc,
	}
}

func (s *Service) StatusFor(ctx context.Context, customerID snowflake.ID, year, month int) (*billingdomain.MonthStatus, error) {
	if customerID == 0 {
		return nil, billingdomain.ErrInvalidCustomer
	}
	if month < 1 || month > 12 {
		return nil, billingdomain.ErrInvalidMonth
	}

	sub, err := s.subRepo.FindByCustomer(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, subscriptiondomain.ErrNotFound
	}
	balance, err := s.walletSvc.Balance(ctx, customerID)
	if err != nil {
		return nil, err
	}

	totalCost := sub.DailyPriceCents * int64(clock.DaysInMonth(year, time.Month(month)))
	amountDue := totalCost - balance
	if amountDue < 0 {
		amountDue = 0
	}

	status := &billingdomain.MonthStatus{
		Year:           year,
		Month:          month,
		TotalCostCents: totalCost,
		AmountDueCents: amountDue,
		BalanceCents:   balance,
		Status:         billingdomain.StatusPending,
		IsGracePeriod:  billingdomain.InGracePeriod(balance, sub.DailyPriceCents),
	}
	if payment, err := s.repo.Find(ctx, s.db, customerID, year, month); err != nil {
		return nil, err
	} else if payment != nil {
		status.Status = payment.Status
		status.PaidAt = payment.PaidAt
	}
	return status, nil
}

// EnsureCurrent is idempotent: the unique (customer, year, month) key
// absorbs concurrent upserts, and a PENDING total that drifted from the
// current rate is rewritten in place.
func (s *Service) EnsureCurrent(ctx context.Context, customerID snowflake.ID) error {
	if customerID == 0 {
		return billingdomain.ErrInvalidCustomer
	}

	now := s.zone.Now()
	year, month := now.Year(), int(now.Month())

	sub, err := s.subRepo.FindByCustomer(ctx, s.db, customerID)
	if err != nil {
		return err
	}
	if sub == nil {
		return subscriptiondomain.ErrNotFound
	}
	totalCost := sub.DailyPriceCents * int64(clock.DaysInMonth(year, now.Month()))

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.repo.InsertIgnoreExisting(ctx, tx, &billingdomain.MonthlyPayment{
			ID:             s.genID.Generate(),
			CustomerID:     customerID,
			Year:           year,
			Month:          month,
			TotalCostCents: totalCost,
			Status:         billingdomain.StatusPending,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if created {
			return nil
		}
		return s.Recompute(ctx, tx, customerID, year, month, sub.DailyPriceCents)
	})
}

func (s *Service) Recompute(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, year, month int, dailyRateCents int64) error {
	payment, err := s.repo.FindForUpdate(ctx, tx, customerID, year, month)
	if err != nil {
		return err
	}
	if payment == nil || payment.Status == billingdomain.StatusPaid {
		return nil
	}

	totalCost := dailyRateCents * int64(clock.DaysInMonth(year, time.Month(month)))
	if payment.TotalCostCents == totalCost {
		return nil
	}

	payment.TotalCostCents = totalCost
	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, tx, payment); err != nil {
		return err
	}
	s.log.Info("monthly total recomputed",
		zap.String("customer_id", customerID.String()),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int64("total_cost_cents", totalCost),
	)
	return nil
}

func (s *Service) MarkPaid(ctx context.Context, customerID snowflake.ID, year, month int) (*billingdomain.MonthlyPayment, error) {
	var out *billingdomain.MonthlyPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindForUpdate(ctx, tx, customerID, year, month)
		if err != nil {
			return err
		}
		if payment == nil {
			return billingdomain.ErrNotFound
		}
		if payment.Status == billingdomain.StatusPaid {
			return billingdomain.ErrAlreadyPaid
		}

		now := time.Now().UTC()
		payment.Status = billingdomain.StatusPaid
		payment.PaidAt = &now
		payment.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
