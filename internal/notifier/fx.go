package notifier

import (
	"github.com/shockvaluemedia/directfanz/internal/config"
	notifierdomain "github.com/shockvaluemedia/directfanz/internal/notifier/domain"
	smtpnotifier "github.com/shockvaluemedia/directfanz/internal/notifier/smtp"
	"go.uber.org/fx"
)

var Module = fx.Module("notifier",
	fx.Provide(func(cfg config.Config) notifierdomain.Notifier {
		return smtpnotifier.New(cfg)
	}),
)
