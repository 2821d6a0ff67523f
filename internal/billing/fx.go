package billing

import (
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	"github.com/smallbiznis/milkrun/internal/billing/repository"
	"github.com/smallbiznis/milkrun/internal/billing/service"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s billingdomain.Service) subscriptiondomain.BillingRecomputer { return s }),
)
