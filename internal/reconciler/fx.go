package reconciler

import (
	"context"

	"github.com/smallbiznis/milkrun/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(StartLoop),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.ReconcilerInterval,
		BatchSize:   cfg.ReconcilerBatchSize,
	}.withDefaults()
}

// StartLoop runs the reconcile loop for the lifetime of the application.
func StartLoop(lc fx.Lifecycle, r *Reconciler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go r.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
			return nil
		},
	})
}
