package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        deliverydomain.Repository
	WalletSvc   walletdomain.Service
	CustomerSvc customerdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        deliverydomain.Repository
	walletSvc   walletdomain.Service
	customerSvc customerdomain.Service
}

func NewService(p ServiceParam) deliverydomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("delivery.service"),
		repo:        p.Repo,
		walletSvc:   p.WalletSvc,
		customerSvc: p.CustomerSvc,
	}
}

func (s *Service) MarkDelivered(ctx context.Context, customerID snowflake.ID, date clock.Date) (*deliverydomain.Delivery, error) {
	var out *deliverydomain.Delivery
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.repo.FindByCustomerDateForUpdate(ctx, tx, customerID, date)
		if err != nil {
			return err
		}
		if d == nil {
			return deliverydomain.ErrNotFound
		}
		if !deliverydomain.CanTransition(d.Status, deliverydomain.StatusDelivered) {
			return deliverydomain.ErrInvalidTransition
		}

		d.Status = deliverydomain.StatusDelivered
		d.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, d); err != nil {
			return err
		}

		if d.ChargeCents > 0 {
			_, err = s.walletSvc.ApplyDelta(
				ctx, tx, customerID, -d.ChargeCents, walletdomain.TxnDeliveryCharge,
				fmt.Sprintf("delivery on %s (%dml)", d.DeliveryDate, d.QuantityML),
				&walletdomain.Reference{Type: "delivery", ID: d.ID},
			)
			if err != nil {
				return err
			}
			if err := s.customerSvc.SyncStatusForBalance(ctx, tx, customerID); err != nil {
				return err
			}
		}

		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("delivery marked delivered",
		zap.String("customer_id", customerID.String()),
		zap.String("date", date.String()),
		zap.Int64("charge_cents", out.ChargeCents),
	)
	return out, nil
}

func (s *Service) MarkNotDelivered(ctx context.Context, customerID snowflake.ID, date clock.Date) (*deliverydomain.Delivery, error) {
	var out *deliverydomain.Delivery
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.repo.FindByCustomerDateForUpdate(ctx, tx, customerID, date)
		if err != nil {
			return err
		}
		if d == nil {
			return deliverydomain.ErrNotFound
		}
		if !deliverydomain.CanTransition(d.Status, deliverydomain.StatusNotDelivered) {
			return deliverydomain.ErrInvalidTransition
		}

		d.Status = deliverydomain.StatusNotDelivered
		d.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListForPerson(ctx context.Context, personID snowflake.ID, date clock.Date) ([]deliverydomain.Delivery, error) {
	return s.repo.ListByPersonDate(ctx, s.db, personID, date)
}
