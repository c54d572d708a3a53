package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	"github.com/shockvaluemedia/directfanz/internal/config"
	fandomain "github.com/shockvaluemedia/directfanz/internal/fan/domain"
	gatewaydomain "github.com/shockvaluemedia/directfanz/internal/gateway/domain"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	invoicerepo "github.com/shockvaluemedia/directfanz/internal/invoice/repository"
	notifierdomain "github.com/shockvaluemedia/directfanz/internal/notifier/domain"
	failuredomain "github.com/shockvaluemedia/directfanz/internal/paymentfailure/domain"
	failurerepo "github.com/shockvaluemedia/directfanz/internal/paymentfailure/repository"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	subscriptionrepo "github.com/shockvaluemedia/directfanz/internal/subscription/repository"
	tierdomain "github.com/shockvaluemedia/directfanz/internal/tier/domain"
	tierrepo "github.com/shockvaluemedia/directfanz/internal/tier/repository"
	"github.com/shockvaluemedia/directfanz/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeGateway struct {
	RetrieveSubscriptionFn    func(ctx context.Context, ref string) (*gatewaydomain.SubscriptionState, error)
	RetrieveUpcomingInvoiceFn func(ctx context.Context, ref string) (*gatewaydomain.UpcomingInvoice, error)
	RetrieveInvoiceFn         func(ctx context.Context, ref string) (*gatewaydomain.InvoiceState, error)
	CancelSubscriptionFn      func(ctx context.Context, ref string) error
	ListInvoicesFn            func(ctx context.Context, ref string, pageSize int, cursor string) (*gatewaydomain.InvoicePage, error)

	canceled []string
}

func (g *fakeGateway) RetrieveSubscription(ctx context.Context, ref string) (*gatewaydomain.SubscriptionState, error) {
	return g.RetrieveSubscriptionFn(ctx, ref)
}

func (g *fakeGateway) RetrieveUpcomingInvoice(ctx context.Context, ref string) (*gatewaydomain.UpcomingInvoice, error) {
	return g.RetrieveUpcomingInvoiceFn(ctx, ref)
}

func (g *fakeGateway) RetrieveInvoice(ctx context.Context, ref string) (*gatewaydomain.InvoiceState, error) {
	return g.RetrieveInvoiceFn(ctx, ref)
}

func (g *fakeGateway) CancelSubscription(ctx context.Context, ref string) error {
	g.canceled = append(g.canceled, ref)
	if g.CancelSubscriptionFn != nil {
		return g.CancelSubscriptionFn(ctx, ref)
	}
	return nil
}

func (g *fakeGateway) ListInvoices(ctx context.Context, ref string, pageSize int, cursor string) (*gatewaydomain.InvoicePage, error) {
	return g.ListInvoicesFn(ctx, ref, pageSize, cursor)
}

type fakeNotifier struct {
	sent    []notifierdomain.Email
	sendErr error
}

func (n *fakeNotifier) SendEmail(_ context.Context, email notifierdomain.Email) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, email)
	return nil
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	gateway  *fakeGateway
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&fandomain.Fan{},
		&tierdomain.Tier{},
		&subscriptiondomain.Subscription{},
		&invoicedomain.Invoice{},
		&failuredomain.PaymentFailure{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	gw := &fakeGateway{}
	mailer := &fakeNotifier{}

	svc := &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		clock: fakeClock,
		cfg:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),

		gateway:  gw,
		notifier: mailer,

		subscriptionrepo: subscriptionrepo.New(),
		invoicerepo:      invoicerepo.New(),
		failurerepo:      failurerepo.New(),
		tierrepo:         tierrepo.New(),
		fanrepo:          repository.ProvideStore[fandomain.Fan](db),
	}

	return &fixture{
		svc:      svc,
		db:       db,
		node:     node,
		clock:    fakeClock,
		gateway:  gw,
		notifier: mailer,
	}
}

func (f *fixture) createFan(t *testing.T, email string, notifications *bool) *fandomain.Fan {
	t.Helper()
	fan := &fandomain.Fan{
		ID:                   f.node.Generate(),
		Email:                email,
		DisplayName:          "Test Fan",
		BillingNotifications: notifications,
	}
	require.NoError(t, f.db.Create(fan).Error)
	return fan
}

func (f *fixture) createTier(t *testing.T, artistID snowflake.ID, name string, subscribers int64) *tierdomain.Tier {
	t.Helper()
	tier := &tierdomain.Tier{
		ID:              f.node.Generate(),
		ArtistID:        artistID,
		Name:            name,
		IsActive:        true,
		SubscriberCount: subscribers,
	}
	require.NoError(t, f.db.Create(tier).Error)
	return tier
}

func (f *fixture) createSubscription(t *testing.T, fan *fandomain.Fan, tier *tierdomain.Tier, amountCents int64, status subscriptiondomain.Status, periodEnd time.Time) *subscriptiondomain.Subscription {
	t.Helper()
	subscription := &subscriptiondomain.Subscription{
		ID:                     f.node.Generate(),
		FanID:                  fan.ID,
		ArtistID:               tier.ArtistID,
		TierID:                 tier.ID,
		AmountCents:            amountCents,
		Status:                 status,
		CurrentPeriodStart:     periodEnd.AddDate(0, -1, 0),
		CurrentPeriodEnd:       periodEnd,
		ProviderSubscriptionID: "sub_" + f.node.Generate().String(),
	}
	require.NoError(t, f.db.Create(subscription).Error)
	return subscription
}

func (f *fixture) reloadSubscription(t *testing.T, id snowflake.ID) *subscriptiondomain.Subscription {
	t.Helper()
	subscription, err := f.svc.subscriptionrepo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, subscription)
	return subscription
}

func boolPtr(b bool) *bool { return &b }
