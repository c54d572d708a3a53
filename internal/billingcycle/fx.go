package billingcycle

import (
	"github.com/shockvaluemedia/directfanz/internal/billingcycle/service"
	invoicerepo "github.com/shockvaluemedia/directfanz/internal/invoice/repository"
	failurerepo "github.com/shockvaluemedia/directfanz/internal/paymentfailure/repository"
	subscriptionrepo "github.com/shockvaluemedia/directfanz/internal/subscription/repository"
	tierrepo "github.com/shockvaluemedia/directfanz/internal/tier/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("billingcycle.service",
	fx.Provide(subscriptionrepo.New),
	fx.Provide(invoicerepo.New),
	fx.Provide(failurerepo.New),
	fx.Provide(tierrepo.New),
	fx.Provide(service.NewService),
)
