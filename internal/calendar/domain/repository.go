package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	"gorm.io/gorm"
)

type Repository interface {
	// UpsertPause inserts the pause unless one already exists for the
	// (customer, date) pair. Setting an already-paused date is a no-op.
	UpsertPause(ctx context.Context, db *gorm.DB, pause *Pause) error
	// DeletePause reports whether a row was removed.
	DeletePause(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date clock.Date) (bool, error)
	FindPause(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date clock.Date) (*Pause, error)
	ListPauses(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to clock.Date) ([]Pause, error)

	UpsertModification(ctx context.Context, db *gorm.DB, mod *DeliveryModification) error
	DeleteModification(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date clock.Date) (bool, error)
	FindModification(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date clock.Date) (*DeliveryModification, error)
	ListModifications(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to clock.Date) ([]DeliveryModification, error)
}
