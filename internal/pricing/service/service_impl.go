package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/config"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fallbackTiers keeps price resolution alive through a store outage or an
// empty tier table. Quantities here are the only supported plans.
var fallbackTiers = []pricingdomain.Rate{
	{QuantityML: 500, DailyPriceCents: 6000, LargeDepositCents: 5000, SmallDepositCents: 3000},
	{QuantityML: 1000, DailyPriceCents: 11000, LargeDepositCents: 5000, SmallDepositCents: 3000},
	{QuantityML: 1500, DailyPriceCents: 16500, LargeDepositCents: 5000, SmallDepositCents: 3000},
	{QuantityML: 2000, DailyPriceCents: 21000, LargeDepositCents: 5000, SmallDepositCents: 3000},
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Config config.Config
	Repo   pricingdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  pricingdomain.Repository
	ttl   time.Duration

	// version is bumped on every tier write; cached reads compare against
	// it so an admin price edit is visible immediately, not after the TTL.
	version atomic.Uint64

	mu       sync.RWMutex
	rates    map[int]pricingdomain.Rate
	loadedAt time.Time
	loadedV  uint64
}

func NewService(p ServiceParam) pricingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		genID: p.GenID,
		repo:  p.Repo,
		ttl:   p.Config.PricingCacheTTL,
	}
}

func (s *Service) Resolve(ctx context.Context, quantityML int) (pricingdomain.Rate, error) {
	if quantityML <= 0 {
		return pricingdomain.Rate{}, pricingdomain.ErrInvalidQuantity
	}

	rates := s.cached()
	if rates == nil {
		rates = s.reload(ctx)
	}

	rate, ok := rates[quantityML]
	if !ok {
		return pricingdomain.Rate{}, pricingdomain.ErrUnsupportedQuantity
	}
	return rate, nil
}

func (s *Service) cached() map[int]pricingdomain.Rate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rates == nil {
		return nil
	}
	if s.loadedV != s.version.Load() {
		return nil
	}
	if time.Since(s.loadedAt) > s.ttl {
		return nil
	}
	return s.rates
}

// reload refreshes the cache from the tier table. A failed or empty read
// falls back to the hardcoded defaults so resolution never hard-fails on a
// transient store outage.
func (s *Service) reload(ctx context.Context) map[int]pricingdomain.Rate {
	version := s.version.Load()

	rates := make(map[int]pricingdomain.Rate)
	tiers, err := s.repo.ListActive(ctx, s.db)
	if err != nil || len(tiers) == 0 {
		if err != nil {
			s.log.Warn("price tier read failed, using fallback table", zap.Error(err))
		}
		for _, rate := range fallbackTiers {
			rates[rate.QuantityML] = rate
		}
	} else {
		for _, tier := range tiers {
			rates[tier.QuantityML] = pricingdomain.Rate{
				QuantityML:        tier.QuantityML,
				DailyPriceCents:   tier.DailyPriceCents,
				LargeDepositCents: tier.LargeDepositCents,
				SmallDepositCents: tier.SmallDepositCents,
			}
		}
	}

	s.mu.Lock()
	s.rates = rates
	s.loadedAt = time.Now()
	s.loadedV = version
	s.mu.Unlock()
	return rates
}

func (s *Service) ListTiers(ctx context.Context) ([]pricingdomain.PriceTier, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) UpsertTier(ctx context.Context, req pricingdomain.UpsertTierRequest) (*pricingdomain.PriceTier, error) {
	if req.QuantityML <= 0 {
		return nil, pricingdomain.ErrInvalidQuantity
	}
	if req.DailyPriceCents <= 0 {
		return nil, pricingdomain.ErrInvalidPrice
	}
	if req.LargeDepositCents < 0 || req.SmallDepositCents < 0 {
		return nil, pricingdomain.ErrInvalidDeposit
	}

	now := time.Now().UTC()
	tier := &pricingdomain.PriceTier{
		ID:                s.genID.Generate(),
		QuantityML:        req.QuantityML,
		DailyPriceCents:   req.DailyPriceCents,
		LargeDepositCents: req.LargeDepositCents,
		SmallDepositCents: req.SmallDepositCents,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Upsert(ctx, s.db, tier); err != nil {
		return nil, err
	}

	// Invalidation must be the last step so the next resolution sees the
	// new price immediately.
	s.version.Add(1)
	return tier, nil
}

func (s *Service) DeactivateTier(ctx context.Context, quantityML int) error {
	if quantityML <= 0 {
		return pricingdomain.ErrInvalidQuantity
	}
	updated, err := s.repo.Deactivate(ctx, s.db, quantityML)
	if err != nil {
		return err
	}
	if !updated {
		return pricingdomain.ErrNotFound
	}
	s.version.Add(1)
	return nil
}
