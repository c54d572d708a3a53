package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shockvaluemedia/directfanz/internal/billingcycle"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	"github.com/shockvaluemedia/directfanz/internal/config"
	"github.com/shockvaluemedia/directfanz/internal/gateway"
	"github.com/shockvaluemedia/directfanz/internal/locker"
	"github.com/shockvaluemedia/directfanz/internal/notifier"
	"github.com/shockvaluemedia/directfanz/internal/scheduler"
	"github.com/shockvaluemedia/directfanz/pkg/db"
	"github.com/shockvaluemedia/directfanz/pkg/log"
	"go.uber.org/fx"
)

// Headless sweep runner for deployments that split the HTTP surface
// from the reconciliation loop.
func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		gateway.Module,
		notifier.Module,
		locker.Module,
		billingcycle.Module,

		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Invoke(StartScheduler),
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

func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}
