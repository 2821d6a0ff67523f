package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIgnoreExisting inserts the row unless one already exists for
	// the (customer, year, month) key. Reports whether a row was created.
	InsertIgnoreExisting(ctx context.Context, db *gorm.DB, payment *MonthlyPayment) (bool, error)
	Find(ctx context.Context, db *gorm.DB, customerID snowflake.ID, year, month int) (*MonthlyPayment, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID, year, month int) (*MonthlyPayment, error)
	Update(ctx context.Context, db *gorm.DB, payment *MonthlyPayment) error
}
