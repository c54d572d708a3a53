package gateway

import (
	"github.com/shockvaluemedia/directfanz/internal/config"
	gatewaydomain "github.com/shockvaluemedia/directfanz/internal/gateway/domain"
	stripegateway "github.com/shockvaluemedia/directfanz/internal/gateway/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	fx.Provide(func(cfg config.Config) (*stripegateway.Gateway, error) {
		return stripegateway.New(cfg.StripeAPIKey)
	}),
	fx.Provide(func(g *stripegateway.Gateway) gatewaydomain.Gateway { return g }),
	fx.Provide(func(g *stripegateway.Gateway) gatewaydomain.InvoiceDataGenerator {
		return stripegateway.NewInvoiceDataGenerator(g)
	}),
)
