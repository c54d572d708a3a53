package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	"github.com/shockvaluemedia/directfanz/internal/config"
	fandomain "github.com/shockvaluemedia/directfanz/internal/fan/domain"
	gatewaydomain "github.com/shockvaluemedia/directfanz/internal/gateway/domain"
	notifierdomain "github.com/shockvaluemedia/directfanz/internal/notifier/domain"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	"github.com/shockvaluemedia/directfanz/pkg/money"
	"github.com/shockvaluemedia/directfanz/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	failuredomain "github.com/shockvaluemedia/directfanz/internal/paymentfailure/domain"
	tierdomain "github.com/shockvaluemedia/directfanz/internal/tier/domain"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingConfigHolder

	Gateway  gatewaydomain.Gateway
	Notifier notifierdomain.Notifier

	SubscriptionRepo subscriptiondomain.Repository
	InvoiceRepo      invoicedomain.Repository
	FailureRepo      failuredomain.Repository
	TierRepo         tierdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   *config.BillingConfigHolder

	gateway  gatewaydomain.Gateway
	notifier notifierdomain.Notifier

	subscriptionrepo subscriptiondomain.Repository
	invoicerepo      invoicedomain.Repository
	failurerepo      failuredomain.Repository
	tierrepo         tierdomain.Repository
	fanrepo          repository.Repository[fandomain.Fan]
}

func NewService(p ServiceParam) (billingcycledomain.Service, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Billing == nil ||
		p.Gateway == nil || p.Notifier == nil ||
		p.SubscriptionRepo == nil || p.InvoiceRepo == nil || p.FailureRepo == nil || p.TierRepo == nil {
		return nil, billingcycledomain.ErrInvalidConfig
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingcycle.service"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Billing,

		gateway:  p.Gateway,
		notifier: p.Notifier,

		subscriptionrepo: p.SubscriptionRepo,
		invoicerepo:      p.InvoiceRepo,
		failurerepo:      p.FailureRepo,
		tierrepo:         p.TierRepo,
		fanrepo:          repository.ProvideStore[fandomain.Fan](p.DB),
	}, nil
}

func (s *Service) newEvent(eventType billingcycledomain.EventType, subscriptionID snowflake.ID, amountCents int64, metadata map[string]any) billingcycledomain.Event {
	return billingcycledomain.Event{
		Type:           eventType,
		SubscriptionID: subscriptionID,
		Amount:         money.FromCents(amountCents),
		Timestamp:      s.clock.Now(),
		Metadata:       metadata,
	}
}

func (s *Service) loadFan(ctx context.Context, id snowflake.ID) (*fandomain.Fan, error) {
	return s.fanrepo.FindOne(ctx, &fandomain.Fan{ID: id})
}

func (s *Service) loadTier(ctx context.Context, id snowflake.ID) (*tierdomain.Tier, error) {
	return s.tierrepo.FindByID(ctx, s.db, id)
}

// notify sends email on a best-effort basis: delivery failures are
// logged and never fail the surrounding sweep.
func (s *Service) notify(ctx context.Context, email notifierdomain.Email, subscriptionID snowflake.ID) bool {
	if err := s.notifier.SendEmail(ctx, email); err != nil {
		s.log.Warn("notification send failed",
			zap.String("subscription_id", subscriptionID.String()),
			zap.String("subject", email.Subject),
			zap.Error(err),
		)
		return false
	}
	return true
}

// mapGatewayStatus translates a processor subscription status into the
// local enum, keeping the current value when the processor reports a
// state with no local equivalent.
func mapGatewayStatus(raw string, current subscriptiondomain.Status) subscriptiondomain.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "trialing":
		return subscriptiondomain.StatusActive
	case "past_due", "unpaid", "incomplete":
		return subscriptiondomain.StatusPastDue
	case "canceled", "incomplete_expired":
		return subscriptiondomain.StatusCanceled
	default:
		return current
	}
}

func invoicePaid(state *gatewaydomain.InvoiceState) bool {
	return state.Paid || strings.EqualFold(state.Status, invoicedomain.StatusPaid)
}

func (s *Service) retryInterval() time.Duration {
	return s.cfg.Get().RetryInterval
}
