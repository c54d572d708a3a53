package billingsummary

import (
	"github.com/shockvaluemedia/directfanz/internal/billingsummary/repository"
	"github.com/shockvaluemedia/directfanz/internal/billingsummary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingsummary.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
