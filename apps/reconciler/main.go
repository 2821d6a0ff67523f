// The reconciler app runs the reconcile loop without the HTTP surface,
// for deployments that scale the API and the background work separately.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/billing"
	"github.com/smallbiznis/milkrun/internal/calendar"
	"github.com/smallbiznis/milkrun/internal/clock"
	"github.com/smallbiznis/milkrun/internal/config"
	"github.com/smallbiznis/milkrun/internal/container"
	"github.com/smallbiznis/milkrun/internal/customer"
	"github.com/smallbiznis/milkrun/internal/delivery"
	"github.com/smallbiznis/milkrun/internal/logger"
	"github.com/smallbiznis/milkrun/internal/migration"
	"github.com/smallbiznis/milkrun/internal/pricing"
	"github.com/smallbiznis/milkrun/internal/reconciler"
	"github.com/smallbiznis/milkrun/internal/subscription"
	"github.com/smallbiznis/milkrun/internal/wallet"
	"github.com/smallbiznis/milkrun/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		pricing.Module,
		wallet.Module,
		customer.Module,
		subscription.Module,
		delivery.Module,
		calendar.Module,
		billing.Module,
		container.Module,

		reconciler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
