package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	"github.com/smallbiznis/milkrun/internal/config"
	"github.com/smallbiznis/milkrun/internal/logger"
	"github.com/smallbiznis/milkrun/internal/migration"
	"github.com/smallbiznis/milkrun/internal/server"
	"github.com/smallbiznis/milkrun/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus every domain module and the reconcile loop
		server.Module,
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
