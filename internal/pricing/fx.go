package pricing

import (
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	"github.com/smallbiznis/milkrun/internal/pricing/repository"
	"github.com/smallbiznis/milkrun/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc pricingdomain.Service) pricingdomain.Resolver { return svc }),
)
