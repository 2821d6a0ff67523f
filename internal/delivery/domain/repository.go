package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIgnoreExisting inserts the row unless one already exists for
	// the (customer, date) pair. Reports whether a row was created.
	InsertIgnoreExisting(ctx context.Context, db *gorm.DB, delivery *Delivery) (bool, error)

	FindByCustomerDate(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date clock.Date) (*Delivery, error)
	FindByCustomerDateForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date clock.Date) (*Delivery, error)

	Update(ctx context.Context, db *gorm.DB, delivery *Delivery) error

	ListByPersonDate(ctx context.Context, db *gorm.DB, personID snowflake.ID, date clock.Date) ([]Delivery, error)
	ListByCustomerRange(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to clock.Date) ([]Delivery, error)

	// ListNonTerminal pages through SCHEDULED and PAUSED rows for price
	// repair, locking the claimed rows so concurrent repair runs do not
	// fight over the same batch.
	ListNonTerminal(ctx context.Context, db *gorm.DB, limit int, afterID snowflake.ID) ([]Delivery, error)
}
