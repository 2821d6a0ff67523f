package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() calendardomain.Repository {
	return &repo{}
}

func (r *repo) UpsertPause(ctx context.Context, conn *gorm.DB, pause *calendardomain.Pause) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO pauses (id, customer_id, pause_date, created_by_customer, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (customer_id, pause_date) DO NOTHING`,
		pause.ID,
		pause.CustomerID,
		pause.PauseDate,
		pause.CreatedByCustomer,
		pause.CreatedAt,
	).Error
}

func (r *repo) DeletePause(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, date clock.Date) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`DELETE FROM pauses WHERE customer_id = ? AND pause_date = ?`,
		customerID, date,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindPause(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, date clock.Date) (*calendardomain.Pause, error) {
	var pause calendardomain.Pause
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, pause_date, created_by_customer, created_at
		 FROM pauses WHERE customer_id = ? AND pause_date = ?`,
		customerID, date,
	).Scan(&pause).Error
	if err != nil {
		return nil, err
	}
	if pause.ID == 0 {
		return nil, nil
	}
	return &pause, nil
}

func (r *repo) ListPauses(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, from, to clock.Date) ([]calendardomain.Pause, error) {
	var rows []calendardomain.Pause
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, pause_date, created_by_customer, created_at
		 FROM pauses
		 WHERE customer_id = ? AND pause_date >= ? AND pause_date <= ?
		 ORDER BY pause_date`,
		customerID, from, to,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) UpsertModification(ctx context.Context, conn *gorm.DB, mod *calendardomain.DeliveryModification) error {
	result := conn.WithContext(ctx).Exec(
		`UPDATE delivery_modifications
		 SET quantity_ml = ?, large_bottles = ?, small_bottles = ?, notes = ?, updated_at = ?
		 WHERE customer_id = ? AND mod_date = ?`,
		mod.QuantityML,
		mod.LargeBottles,
		mod.SmallBottles,
		mod.Notes,
		mod.UpdatedAt,
		mod.CustomerID,
		mod.ModDate,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return conn.WithContext(ctx).Exec(
		`INSERT INTO delivery_modifications (
			id, customer_id, mod_date, quantity_ml, large_bottles,
			small_bottles, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mod.ID,
		mod.CustomerID,
		mod.ModDate,
		mod.QuantityML,
		mod.LargeBottles,
		mod.SmallBottles,
		mod.Notes,
		mod.CreatedAt,
		mod.UpdatedAt,
	).Error
}

func (r *repo) DeleteModification(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, date clock.Date) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`DELETE FROM delivery_modifications WHERE customer_id = ? AND mod_date = ?`,
		customerID, date,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindModification(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, date clock.Date) (*calendardomain.DeliveryModification, error) {
	var mod calendardomain.DeliveryModification
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, mod_date, quantity_ml, large_bottles,
		 small_bottles, notes, created_at, updated_at
		 FROM delivery_modifications WHERE customer_id = ? AND mod_date = ?`,
		customerID, date,
	).Scan(&mod).Error
	if err != nil {
		return nil, err
	}
	if mod.ID == 0 {
		return nil, nil
	}
	return &mod, nil
}

func (r *repo) ListModifications(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, from, to clock.Date) ([]calendardomain.DeliveryModification, error) {
	var rows []calendardomain.DeliveryModification
	err := conn.WithContext(ctx).Raw(
		`SELECT id, customer_id, mod_date, quantity_ml, large_bottles,
		 small_bottles, notes, created_at, updated_at
		 FROM delivery_modifications
		 WHERE customer_id = ? AND mod_date >= ? AND mod_date <= ?
		 ORDER BY mod_date`,
		customerID, from, to,
	).Scan(&rows).Error
	return rows, err
}
