package calendar

import (
	"github.com/smallbiznis/milkrun/internal/calendar/repository"
	"github.com/smallbiznis/milkrun/internal/calendar/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calendar.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
