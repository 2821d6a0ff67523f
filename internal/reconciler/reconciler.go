// Package reconciler runs the periodic jobs that keep the concrete
// delivery schedule, stored charges and customer statuses in step with
// the calendar, the price tiers and the wallet balances. Every job is
// idempotent; running twice for the same day changes nothing the second
// time.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	"github.com/smallbiznis/milkrun/internal/metrics"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_reconciler_config")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Zone         *clock.Zone
	CalendarRepo calendardomain.Repository
	DeliveryRepo deliverydomain.Repository
	SubRepo      subscriptiondomain.Repository
	Pricing      pricingdomain.Resolver
	CustomerSvc  customerdomain.Service
	BillingSvc   billingdomain.Service
	Config       Config `optional:"true"`
}

type Reconciler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	genID        *snowflake.Node
	zone         *clock.Zone
	calendarRepo calendardomain.Repository
	deliveryRepo deliverydomain.Repository
	subRepo      subscriptiondomain.Repository
	pricing      pricingdomain.Resolver
	customerSvc  customerdomain.Service
	billingSvc   billingdomain.Service
}

func New(p Params) (*Reconciler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Zone == nil ||
		p.CalendarRepo == nil || p.DeliveryRepo == nil || p.SubRepo == nil ||
		p.Pricing == nil || p.CustomerSvc == nil || p.BillingSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Reconciler{
		db:           p.DB,
		log:          p.Log.Named("reconciler"),
		cfg:          p.Config.withDefaults(),
		genID:        p.GenID,
		zone:         p.Zone,
		calendarRepo: p.CalendarRepo,
		deliveryRepo: p.DeliveryRepo,
		subRepo:      p.SubRepo,
		pricing:      p.Pricing,
		customerSvc:  p.CustomerSvc,
		billingSvc:   p.BillingSvc,
	}, nil
}

func (r *Reconciler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, r.cfg.JobTimeout)
	defer cancel()

	m := metrics.Reconciler()
	m.IncJobRun(name)

	err := fn(ctx)
	m.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		r.log.Warn("job timed out", zap.String("job", name), zap.Error(err))
		return nil
	}
	m.IncJobError(name)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes one full reconciliation pass. Safe to invoke from the
// schedule loop and opportunistically from request paths at the same
// time.
func (r *Reconciler) RunOnce(parent context.Context) error {
	var err error
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"ensure_deliveries", r.EnsureDeliveriesJob},
		{"repair_prices", r.RepairPricesJob},
		{"sync_customer_status", r.SyncCustomerStatusJob},
		{"ensure_billing", r.EnsureBillingJob},
	}
	for _, job := range jobs {
		err = errors.Join(err, r.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (r *Reconciler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("reconciliation pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
