package container

import (
	"github.com/smallbiznis/milkrun/internal/container/repository"
	"github.com/smallbiznis/milkrun/internal/container/service"
	"go.uber.org/fx"
)

var Module = fx.Module("container.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
