package locker

import "go.uber.org/fx"

var Module = fx.Module("locker",
	fx.Provide(New),
)
