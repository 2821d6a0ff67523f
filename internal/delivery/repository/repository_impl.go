package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	"github.com/smallbiznis/milkrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() deliverydomain.Repository {
	return &repo{}
}

func (r *repo) InsertIgnoreExisting(ctx context.Context, conn *gorm.DB, d *deliverydomain.Delivery) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`INSERT INTO deliveries (
			id, customer_id, delivery_person_id, delivery_date,
			quantity_ml, large_bottles, small_bottles, status,
			charge_cents, deposit_cents, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer_id, delivery_date) DO NOTHING`,
		d.ID,
		d.CustomerID,
		d.DeliveryPersonID,
		d.DeliveryDate,
		d.QuantityML,
		d.LargeBottles,
		d.SmallBottles,
		string(d.Status),
		d.ChargeCents,
		d.DepositCents,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByCustomerDate(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, date clock.Date) (*deliverydomain.Delivery, error) {
	return r.find(ctx, conn, customerID, date, "")
}

func (r *repo) FindByCustomerDateForUpdate(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, date clock.Date) (*deliverydomain.Delivery, error) {
	return r.find(ctx, conn, customerID, date, db.LockClause(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, date clock.Date, lock string) (*deliverydomain.Delivery, error) {
	var d deliverydomain.Delivery
	query := fmt.Sprintf(
		`SELECT id, customer_id, delivery_person_id, delivery_date,
		 quantity_ml, large_bottles, small_bottles, status,
		 charge_cents, deposit_cents, created_at, updated_at
		 FROM deliveries WHERE customer_id = ? AND delivery_date = ? %s`,
		lock,
	)
	if err := conn.WithContext(ctx).Raw(query, customerID, date).Scan(&d).Error; err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, d *deliverydomain.Delivery) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE deliveries
		 SET quantity_ml = ?, large_bottles = ?, small_bottles = ?,
		     status = ?, charge_cents = ?, deposit_cents = ?, updated_at = ?
		 WHERE id = ?`,
		d.QuantityML,
		d.LargeBottles,
		d.SmallBottles,
		string(d.Status),
		d.ChargeCents,
		d.DepositCents,
		d.UpdatedAt,
		d.ID,
	).Error
}

func (r *repo) ListByPersonDate(ctx context.Context, conn *gorm.DB, personID snowflake.ID, date clock.Date) ([]deliverydomain.Delivery, error) {
	var rows []deliverydomain.Delivery
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, delivery_person_id, delivery_date,
		 quantity_ml, large_bottles, small_bottles, status,
		 charge_cents, deposit_cents, created_at, updated_at
		 FROM deliveries
		 WHERE delivery_person_id = ? AND delivery_date = ?
		 ORDER BY customer_id`,
		personID, date,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) ListByCustomerRange(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, from, to clock.Date) ([]deliverydomain.Delivery, error) {
	var rows []deliverydomain.Delivery
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, delivery_person_id, delivery_date,
		 quantity_ml, large_bottles, small_bottles, status,
		 charge_cents, deposit_cents, created_at, updated_at
		 FROM deliveries
		 WHERE customer_id = ? AND delivery_date >= ? AND delivery_date <= ?
		 ORDER BY delivery_date`,
		customerID, from, to,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) ListNonTerminal(ctx context.Context, conn *gorm.DB, limit int, afterID snowflake.ID) ([]deliverydomain.Delivery, error) {
	var rows []deliverydomain.Delivery
	query := fmt.Sprintf(
		`SELECT id, customer_id, delivery_person_id, delivery_date,
		 quantity_ml, large_bottles, small_bottles, status,
		 charge_cents, deposit_cents, created_at, updated_at
		 FROM deliveries
		 WHERE status IN ('SCHEDULED', 'PAUSED') AND id > ?
		 ORDER BY id
		 LIMIT ? %s`,
		db.SkipLockedClause(conn),
	)
	err := conn.WithContext(ctx).Raw(query, afterID, limit).Scan(&rows).Error
	return rows, err
}
