package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/novahq/nova/internal/clock"
	"github.com/novahq/nova/internal/config"
	"github.com/novahq/nova/internal/migration"
	"github.com/novahq/nova/internal/server"
	"github.com/novahq/nova/pkg/db"
	"github.com/novahq/nova/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
