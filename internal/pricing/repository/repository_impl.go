package repository

import (
	"context"

	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricingdomain.Repository {
	return &repo{}
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]pricingdomain.PriceTier, error) {
	var items []pricingdomain.PriceTier
	err := db.WithContext(ctx).Raw(
		`SELECT id, quantity_ml, daily_price_cents, large_deposit_cents, small_deposit_cents,
		 active, created_at, updated_at
		 FROM price_tiers WHERE active = ? ORDER BY quantity_ml ASC`,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]pricingdomain.PriceTier, error) {
	var items []pricingdomain.PriceTier
	err := db.WithContext(ctx).Raw(
		`SELECT id, quantity_ml, daily_price_cents, large_deposit_cents, small_deposit_cents,
		 active, created_at, updated_at
		 FROM price_tiers ORDER BY quantity_ml ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByQuantity(ctx context.Context, db *gorm.DB, quantityML int) (*pricingdomain.PriceTier, error) {
	var tier pricingdomain.PriceTier
	err := db.WithContext(ctx).Raw(
		`SELECT id, quantity_ml, daily_price_cents, large_deposit_cents, small_deposit_cents,
		 active, created_at, updated_at
		 FROM price_tiers WHERE quantity_ml = ?`,
		quantityML,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, tier *pricingdomain.PriceTier) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE price_tiers
		 SET daily_price_cents = ?, large_deposit_cents = ?, small_deposit_cents = ?,
		     active = ?, updated_at = ?
		 WHERE quantity_ml = ?`,
		tier.DailyPriceCents,
		tier.LargeDepositCents,
		tier.SmallDepositCents,
		tier.Active,
		tier.UpdatedAt,
		tier.QuantityML,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_tiers (
			id, quantity_ml, daily_price_cents, large_deposit_cents, small_deposit_cents,
			active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tier.ID,
		tier.QuantityML,
		tier.DailyPriceCents,
		tier.LargeDepositCents,
		tier.SmallDepositCents,
		tier.Active,
		tier.CreatedAt,
		tier.UpdatedAt,
	).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, quantityML int) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE price_tiers SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE quantity_ml = ?`,
		false,
		quantityML,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
