package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	"github.com/smallbiznis/milkrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, sub *subscriptiondomain.Subscription) error {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, customer_id, daily_quantity_ml, daily_price_cents,
			large_bottles, small_bottles, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.CustomerID,
		sub.DailyQuantityML,
		sub.DailyPriceCents,
		sub.LargeBottles,
		sub.SmallBottles,
		sub.Metadata,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return subscriptiondomain.ErrAlreadySubscribed
	}
	return err
}

func (r *repo) FindByCustomer(ctx context.Context, conn *gorm.DB, customerID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(ctx, conn, customerID, "")
}

func (r *repo) FindByCustomerForUpdate(ctx context.Context, conn *gorm.DB, customerID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(ctx, conn, customerID, db.LockClause(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, lock string) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	query := fmt.Sprintf(
		`SELECT id, customer_id, daily_quantity_ml, daily_price_cents,
		 large_bottles, small_bottles, metadata, created_at, updated_at
		 FROM subscriptions WHERE customer_id = ? %s`,
		lock,
	)
	if err := conn.WithContext(ctx).Raw(query, customerID).Scan(&sub).Error; err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, sub *subscriptiondomain.Subscription) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET daily_quantity_ml = ?, daily_price_cents = ?,
		     large_bottles = ?, small_bottles = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		sub.DailyQuantityML,
		sub.DailyPriceCents,
		sub.LargeBottles,
		sub.SmallBottles,
		sub.Metadata,
		sub.UpdatedAt,
		sub.ID,
	).Error
}
