package domain

import (
	"context"
	"errors"
)

// Resolver answers "what does a daily quantity cost" for the calendar,
// reconciler, billing and subscription modules.
type Resolver interface {
	Resolve(ctx context.Context, quantityML int) (Rate, error)
}

// Service adds the administrative tier operations. Every write must
// invalidate the resolver cache as its last step.
type Service interface {
	Resolver
	ListTiers(ctx context.Context) ([]PriceTier, error)
	UpsertTier(ctx context.Context, req UpsertTierRequest) (*PriceTier, error)
	DeactivateTier(ctx context.Context, quantityML int) error
}

type UpsertTierRequest struct {
	QuantityML        int   `json:"quantity_ml"`
	DailyPriceCents   int64 `json:"daily_price_cents"`
	LargeDepositCents int64 `json:"large_deposit_cents"`
	SmallDepositCents int64 `json:"small_deposit_cents"`
}

var (
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidDeposit      = errors.New("invalid_deposit")
	ErrUnsupportedQuantity = errors.New("unsupported_quantity")
	ErrNotFound            = errors.New("not_found")
)
