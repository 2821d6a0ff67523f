package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListActive(ctx context.Context, db *gorm.DB) ([]PriceTier, error)
	List(ctx context.Context, db *gorm.DB) ([]PriceTier, error)
	FindByQuantity(ctx context.Context, db *gorm.DB, quantityML int) (*PriceTier, error)
	Upsert(ctx context.Context, db *gorm.DB, tier *PriceTier) error
	Deactivate(ctx context.Context, db *gorm.DB, quantityML int) (bool, error)
}
