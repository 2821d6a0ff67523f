package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	"github.com/smallbiznis/milkrun/internal/metrics"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	"github.com/smallbiznis/milkrun/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type eligibleCustomer struct {
	ID               snowflake.ID
	DeliveryPersonID snowflake.ID
}

// EnsureDeliveriesJob guarantees today's delivery row for every assigned
// ACTIVE customer whose calendar is not paused. Existence is enforced by
// the (customer_id, delivery_date) unique key, so concurrent passes can
// never double-create.
func (r *Reconciler) EnsureDeliveriesJob(ctx context.Context) error {
	created, err := r.ensureDeliveries(ctx, nil, r.zone.Today())
	if err != nil {
		return err
	}
	metrics.Reconciler().AddDeliveriesCreated(created)
	if created > 0 {
		r.log.Info("deliveries ensured", zap.Int("created", created))
	}
	return nil
}

// EnsureForPerson runs the ensure pass for one delivery person, used by
// the request layer on dashboard load.
func (r *Reconciler) EnsureForPerson(ctx context.Context, personID snowflake.ID, date clock.Date) (int, error) {
	created, err := r.ensureDeliveries(ctx, &personID, date)
	if err != nil {
		return 0, err
	}
	metrics.Reconciler().AddDeliveriesCreated(created)
	return created, nil
}

func (r *Reconciler) ensureDeliveries(ctx context.Context, personID *snowflake.ID, date clock.Date) (int, error) {
	created := 0
	var cursor snowflake.ID

	for {
		batchCreated, lastID, n, err := r.ensureBatch(ctx, personID, date, cursor)
		if err != nil {
			return created, err
		}
		created += batchCreated
		if n < r.cfg.BatchSize {
			return created, nil
		}
		cursor = lastID
	}
}

// ensureBatch claims one batch of eligible customers. The claim locks the
// customer rows so concurrent passes over the same delivery person
// partition do not race; SKIP LOCKED lets other partitions proceed.
func (r *Reconciler) ensureBatch(ctx context.Context, personID *snowflake.ID, date clock.Date, cursor snowflake.ID) (created int, lastID snowflake.ID, n int, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := fmt.Sprintf(
			`SELECT id, delivery_person_id FROM customers
			 WHERE status = 'ACTIVE'
			   AND delivery_person_id IS NOT NULL
			   AND (assignment_start_date IS NULL OR assignment_start_date <= ?)
			   AND id > ?
			   AND (? = 0 OR delivery_person_id = ?)
			   AND NOT EXISTS (
				SELECT 1 FROM deliveries d
				WHERE d.customer_id = customers.id AND d.delivery_date = ?
			   )
			 ORDER BY id
			 LIMIT %d %s`,
			r.cfg.BatchSize, db.SkipLockedClause(tx),
		)
		var filter snowflake.ID
		if personID != nil {
			filter = *personID
		}

		var batch []eligibleCustomer
		if err := tx.Raw(query, date, cursor, filter, filter, date).Scan(&batch).Error; err != nil {
			return err
		}
		n = len(batch)
		if n == 0 {
			return nil
		}
		lastID = batch[n-1].ID

		for _, customer := range batch {
			ok, err := r.ensureOne(ctx, tx, customer, date)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	return created, lastID, n, err
}

func (r *Reconciler) ensureOne(ctx context.Context, tx *gorm.DB, customer eligibleCustomer, date clock.Date) (bool, error) {
	sub, err := r.subRepo.FindByCustomer(ctx, tx, customer.ID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	pause, err := r.calendarRepo.FindPause(ctx, tx, customer.ID, date)
	if err != nil {
		return false, err
	}
	mod, err := r.calendarRepo.FindModification(ctx, tx, customer.ID, date)
	if err != nil {
		return false, err
	}

	eff := calendardomain.EffectiveState(sub, mod, pause)
	if eff.Paused {
		return false, nil
	}

	rate, err := r.pricing.Resolve(ctx, eff.QuantityML)
	if err != nil {
		if errors.Is(err, pricingdomain.ErrUnsupportedQuantity) {
			r.log.Warn("skipping customer with unsupported quantity",
				zap.String("customer_id", customer.ID.String()),
				zap.Int("quantity_ml", eff.QuantityML),
			)
			return false, nil
		}
		return false, err
	}

	now := time.Now().UTC()
	return r.deliveryRepo.InsertIgnoreExisting(ctx, tx, &deliverydomain.Delivery{
		ID:               r.genID.Generate(),
		CustomerID:       customer.ID,
		DeliveryPersonID: customer.DeliveryPersonID,
		DeliveryDate:     date,
		QuantityML:       eff.QuantityML,
		LargeBottles:     eff.LargeBottles,
		SmallBottles:     eff.SmallBottles,
		Status:           deliverydomain.StatusScheduled,
		ChargeCents:      rate.DailyPriceCents,
		DepositCents:     rate.DepositFor(eff.LargeBottles, eff.SmallBottles),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// RepairPricesJob rewrites the stored charge of non-terminal rows that
// drifted from the current tier table. DELIVERED and NOT_DELIVERED rows
// are history and never touched.
func (r *Reconciler) RepairPricesJob(ctx context.Context) error {
	repaired := 0
	var cursor snowflake.ID

	for {
		var batchN int
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rows, err := r.deliveryRepo.ListNonTerminal(ctx, tx, r.cfg.BatchSize, cursor)
			if err != nil {
				return err
			}
			batchN = len(rows)
			if batchN == 0 {
				return nil
			}
			cursor = rows[batchN-1].ID

			for i := range rows {
				ok, err := r.repairOne(ctx, tx, &rows[i])
				if err != nil {
					return err
				}
				if ok {
					repaired++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if batchN < r.cfg.BatchSize {
			break
		}
	}

	metrics.Reconciler().AddPricesRepaired(repaired)
	if repaired > 0 {
		r.log.Info("delivery charges repaired", zap.Int("repaired", repaired))
	}
	return nil
}

func (r *Reconciler) repairOne(ctx context.Context, tx *gorm.DB, row *deliverydomain.Delivery) (bool, error) {
	rate, err := r.pricing.Resolve(ctx, row.QuantityML)
	if err != nil {
		if errors.Is(err, pricingdomain.ErrUnsupportedQuantity) {
			return false, nil
		}
		return false, err
	}

	deposit := rate.DepositFor(row.LargeBottles, row.SmallBottles)
	if row.ChargeCents == rate.DailyPriceCents && row.DepositCents == deposit {
		return false, nil
	}

	row.ChargeCents = rate.DailyPriceCents
	row.DepositCents = deposit
	row.UpdatedAt = time.Now().UTC()
	if err := r.deliveryRepo.Update(ctx, tx, row); err != nil {
		return false, err
	}
	return true, nil
}

// SyncCustomerStatusJob flips ACTIVE customers past the grace threshold
// to INACTIVE and restores INACTIVE customers whose balance recovered.
func (r *Reconciler) SyncCustomerStatusJob(ctx context.Context) error {
	ids, err := r.listByStatus(ctx, "ACTIVE", "INACTIVE")
	if err != nil {
		return err
	}
	for _, id := range ids {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.customerSvc.SyncStatusForBalance(ctx, tx, id)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// EnsureBillingJob keeps the current month's payment row present and its
// PENDING total in step with the subscription rate.
func (r *Reconciler) EnsureBillingJob(ctx context.Context) error {
	ids, err := r.listByStatus(ctx, "ACTIVE", "INACTIVE")
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.billingSvc.EnsureCurrent(ctx, id); err != nil {
			if errors.Is(err, subscriptiondomain.ErrNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}

func (r *Reconciler) listByStatus(ctx context.Context, statuses ...string) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).Raw(
		`SELECT id FROM customers WHERE status IN (?) ORDER BY id`,
		statuses,
	).Scan(&ids).Error
	return ids, err
}
