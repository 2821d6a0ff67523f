package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Subscription, error)
	FindByCustomerForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
}
