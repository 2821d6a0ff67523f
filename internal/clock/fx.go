package clock

import (
	"github.com/smallbiznis/milkrun/internal/config"
	"go.uber.org/fx"
)

func provideZone(c Clock, cfg config.Config) (*Zone, error) {
	return NewZone(c, cfg.DeliveryTimezone, cfg.CutoffHour)
}

// Module wires the system clock and the delivery-zone view of it.
var Module = fx.Module("clock",
	fx.Provide(System),
	fx.Provide(provideZone),
)
