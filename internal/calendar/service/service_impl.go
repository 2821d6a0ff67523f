package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Zone         *clock.Zone
	Repo         calendardomain.Repository
	SubRepo      subscriptiondomain.Repository
	DeliveryRepo deliverydomain.Repository
	Pricing      pricingdomain.Resolver
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	zone         *clock.Zone
	repo         calendardomain.Repository
	subRepo      subscriptiondomain.Repository
	deliveryRepo deliverydomain.Repository
	pricing      pricingdomain.Resolver
}

func NewService(p ServiceParam) calendardomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("calendar.service"),
		genID:        p.GenID,
		zone:         p.Zone,
		repo:         p.Repo,
		subRepo:      p.SubRepo,
		deliveryRepo: p.DeliveryRepo,
		pricing:      p.Pricing,
	}
}

func (s *Service) SetPause(ctx context.Context, req calendardomain.PauseRequest) error {
	if req.CustomerID == 0 {
		return calendardomain.ErrInvalidCustomer
	}
	if err := s.zone.CheckMutable(req.Date); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.requireSubscription(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		pause := &calendardomain.Pause{
			ID:                s.genID.Generate(),
			CustomerID:        req.CustomerID,
			PauseDate:         req.Date,
			CreatedByCustomer: req.ByCustomer,
			CreatedAt:         time.Now().UTC(),
		}
		if err := s.repo.UpsertPause(ctx, tx, pause); err != nil {
			return err
		}
		return s.syncDeliveryRow(ctx, tx, sub, req.CustomerID, req.Date)
	})
}

func (s *Service) ClearPause(ctx context.Context, customerID snowflake.ID, date clock.Date) error {
	if customerID == 0 {
		return calendardomain.ErrInvalidCustomer
	}
	if err := s.zone.CheckMutable(date); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.requireSubscription(ctx, tx, customerID)
		if err != nil {
			return err
		}
		removed, err := s.repo.DeletePause(ctx, tx, customerID, date)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		return s.syncDeliveryRow(ctx, tx, sub, customerID, date)
	})
}

func (s *Service) SetModification(ctx context.Context, req calendardomain.ModificationRequest) error {
	if req.CustomerID == 0 {
		return calendardomain.ErrInvalidCustomer
	}
	if err := s.zone.CheckMutable(req.Date); err != nil {
		return err
	}
	// Resolving up front also validates the quantity against the tiers.
	if _, err := s.pricing.Resolve(ctx, req.QuantityML); err != nil {
		return err
	}

	large, small := pricingdomain.BottleSplit(req.QuantityML)
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.requireSubscription(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		mod := &calendardomain.DeliveryModification{
			ID:           s.genID.Generate(),
			CustomerID:   req.CustomerID,
			ModDate:      req.Date,
			QuantityML:   req.QuantityML,
			LargeBottles: large,
			SmallBottles: small,
			Notes:        req.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.UpsertModification(ctx, tx, mod); err != nil {
			return err
		}
		return s.syncDeliveryRow(ctx, tx, sub, req.CustomerID, req.Date)
	})
}

func (s *Service) ClearModification(ctx context.Context, customerID snowflake.ID, date clock.Date) error {
	if customerID == 0 {
		return calendardomain.ErrInvalidCustomer
	}
	if err := s.zone.CheckMutable(date); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.requireSubscription(ctx, tx, customerID)
		if err != nil {
			return err
		}
		removed, err := s.repo.DeleteModification(ctx, tx, customerID, date)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		return s.syncDeliveryRow(ctx, tx, sub, customerID, date)
	})
}

// BatchApply processes eligible dates and reports the rest as skipped
// with the policy error. One date failing the cutoff never blocks the
// others.
func (s *Service) BatchApply(ctx context.Context, req calendardomain.BatchRequest) ([]calendardomain.DateResult, error) {
	if req.CustomerID == 0 {
		return nil, calendardomain.ErrInvalidCustomer
	}
	if len(req.Dates) == 0 {
		return nil, calendardomain.ErrNoDates
	}

	results := make([]calendardomain.DateResult, 0, len(req.Dates))
	for _, date := range req.Dates {
		var err error
		switch req.Action {
		case calendardomain.ActionPause:
			err = s.SetPause(ctx, calendardomain.PauseRequest{CustomerID: req.CustomerID, Date: date, ByCustomer: req.ByCustomer})
		case calendardomain.ActionResume:
			err = s.ClearPause(ctx, req.CustomerID, date)
		case calendardomain.ActionModify:
			err = s.SetModification(ctx, calendardomain.ModificationRequest{
				CustomerID: req.CustomerID,
				Date:       date,
				QuantityML: req.QuantityML,
				Notes:      req.Notes,
			})
		case calendardomain.ActionClearModify:
			err = s.ClearModification(ctx, req.CustomerID, date)
		default:
			return nil, calendardomain.ErrInvalidAction
		}

		result := calendardomain.DateResult{Date: date, Applied: err == nil}
		if err != nil {
			result.Reason = err.Error()
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) EffectiveFor(ctx context.Context, customerID snowflake.ID, date clock.Date) (calendardomain.EffectiveDelivery, error) {
	sub, err := s.requireSubscription(ctx, s.db, customerID)
	if err != nil {
		return calendardomain.EffectiveDelivery{}, err
	}
	pause, err := s.repo.FindPause(ctx, s.db, customerID, date)
	if err != nil {
		return calendardomain.EffectiveDelivery{}, err
	}
	mod, err := s.repo.FindModification(ctx, s.db, customerID, date)
	if err != nil {
		return calendardomain.EffectiveDelivery{}, err
	}
	return calendardomain.EffectiveState(sub, mod, pause), nil
}

func (s *Service) MonthView(ctx context.Context, customerID snowflake.ID, year int, month int) ([]calendardomain.DayView, error) {
	if customerID == 0 {
		return nil, calendardomain.ErrInvalidCustomer
	}
	if month < 1 || month > 12 {
		return nil, clock.ErrInvalidDate
	}

	sub, err := s.requireSubscription(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}

	days := clock.DaysInMonth(year, time.Month(month))
	from := clock.Date(fmt.Sprintf("%04d-%02d-01", year, month))
	to := from.AddDays(days - 1)

	pauses, err := s.repo.ListPauses(ctx, s.db, customerID, from, to)
	if err != nil {
		return nil, err
	}
	mods, err := s.repo.ListModifications(ctx, s.db, customerID, from, to)
	if err != nil {
		return nil, err
	}
	deliveries, err := s.deliveryRepo.ListByCustomerRange(ctx, s.db, customerID, from, to)
	if err != nil {
		return nil, err
	}

	pauseByDate := make(map[clock.Date]*calendardomain.Pause, len(pauses))
	for i := range pauses {
		pauseByDate[pauses[i].PauseDate] = &pauses[i]
	}
	modByDate := make(map[clock.Date]*calendardomain.DeliveryModification, len(mods))
	for i := range mods {
		modByDate[mods[i].ModDate] = &mods[i]
	}
	deliveryByDate := make(map[clock.Date]*deliverydomain.Delivery, len(deliveries))
	for i := range deliveries {
		deliveryByDate[deliveries[i].DeliveryDate] = &deliveries[i]
	}

	views := make([]calendardomain.DayView, 0, days)
	for i := 0; i < days; i++ {
		date := from.AddDays(i)
		mod := modByDate[date]
		eff := calendardomain.EffectiveState(sub, mod, pauseByDate[date])

		view := calendardomain.DayView{
			Date:         date,
			Paused:       eff.Paused,
			Modified:     mod != nil,
			QuantityML:   eff.QuantityML,
			LargeBottles: eff.LargeBottles,
			SmallBottles: eff.SmallBottles,
		}
		if mod != nil {
			view.Notes = mod.Notes
		}
		if d := deliveryByDate[date]; d != nil {
			status := d.Status
			charge := d.ChargeCents
			view.DeliveryStatus = &status
			view.ChargeCents = &charge
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) requireSubscription(ctx context.Context, conn *gorm.DB, customerID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	sub, err := s.subRepo.FindByCustomer(ctx, conn, customerID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, calendardomain.ErrNoSubscription
	}
	return sub, nil
}

// syncDeliveryRow keeps an existing concrete row in step with the new
// effective state so the calendar and the schedule never diverge.
// Terminal rows are history and stay untouched.
func (s *Service) syncDeliveryRow(ctx context.Context, tx *gorm.DB, sub *subscriptiondomain.Subscription, customerID snowflake.ID, date clock.Date) error {
	row, err := s.deliveryRepo.FindByCustomerDateForUpdate(ctx, tx, customerID, date)
	if err != nil {
		return err
	}
	if row == nil || row.Status.Terminal() {
		return nil
	}

	pause, err := s.repo.FindPause(ctx, tx, customerID, date)
	if err != nil {
		return err
	}
	mod, err := s.repo.FindModification(ctx, tx, customerID, date)
	if err != nil {
		return err
	}
	eff := calendardomain.EffectiveState(sub, mod, pause)

	if eff.Paused {
		if row.Status == deliverydomain.StatusPaused {
			return nil
		}
		row.Status = deliverydomain.StatusPaused
		row.UpdatedAt = time.Now().UTC()
		return s.deliveryRepo.Update(ctx, tx, row)
	}

	rate, err := s.pricing.Resolve(ctx, eff.QuantityML)
	if err != nil {
		return err
	}
	row.Status = deliverydomain.StatusScheduled
	row.QuantityML = eff.QuantityML
	row.LargeBottles = eff.LargeBottles
	row.SmallBottles = eff.SmallBottles
	row.ChargeCents = rate.DailyPriceCents
	row.DepositCents = rate.DepositFor(eff.LargeBottles, eff.SmallBottles)
	row.UpdatedAt = time.Now().UTC()
	return s.deliveryRepo.Update(ctx, tx, row)
}
