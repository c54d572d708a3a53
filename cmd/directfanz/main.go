package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	"github.com/shockvaluemedia/directfanz/internal/config"
	"github.com/shockvaluemedia/directfanz/internal/migration"
	"github.com/shockvaluemedia/directfanz/internal/server"
	"github.com/shockvaluemedia/directfanz/pkg/db"
	"github.com/shockvaluemedia/directfanz/pkg/log"
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
