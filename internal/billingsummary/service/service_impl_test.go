package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	summaryrepo "github.com/shockvaluemedia/directfanz/internal/billingsummary/repository"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	"github.com/shockvaluemedia/directfanz/internal/config"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	invoicerepo "github.com/shockvaluemedia/directfanz/internal/invoice/repository"
	failuredomain "github.com/shockvaluemedia/directfanz/internal/paymentfailure/domain"
	failurerepo "github.com/shockvaluemedia/directfanz/internal/paymentfailure/repository"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	tierdomain "github.com/shockvaluemedia/directfanz/internal/tier/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type summaryFixture struct {
	svc   *Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newSummaryFixture(t *testing.T) *summaryFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tierdomain.Tier{},
		&subscriptiondomain.Subscription{},
		&invoicedomain.Invoice{},
		&failuredomain.PaymentFailure{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	svc := &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		clock: fakeClock,
		cfg:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),

		summaryrepo: summaryrepo.New(),
		invoicerepo: invoicerepo.New(),
		failurerepo: failurerepo.New(),
	}

	return &summaryFixture{svc: svc, db: db, node: node, clock: fakeClock}
}

func (f *summaryFixture) createTier(t *testing.T, artistID snowflake.ID, name string, subscribers int64) *tierdomain.Tier {
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

func (f *summaryFixture) createSubscription(t *testing.T, tier *tierdomain.Tier, amountCents int64, status subscriptiondomain.Status, periodEnd time.Time) *subscriptiondomain.Subscription {
	t.Helper()
	subscription := &subscriptiondomain.Subscription{
		ID:                     f.node.Generate(),
		FanID:                  f.node.Generate(),
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

func (f *summaryFixture) createPaidInvoice(t *testing.T, subscriptionID snowflake.ID, amountCents int64, paidAt time.Time) {
	t.Helper()
	invoice := &invoicedomain.Invoice{
		ID:                f.node.Generate(),
		SubscriptionID:    subscriptionID,
		ProviderInvoiceID: "in_" + f.node.Generate().String(),
		AmountCents:       amountCents,
		Status:            invoicedomain.StatusPaid,
		PaidAt:            &paidAt,
		PeriodStart:       paidAt.AddDate(0, -1, 0),
		PeriodEnd:         paidAt,
	}
	require.NoError(t, f.db.Create(invoice).Error)
}

func TestSummaryAggregatesArtistActivity(t *testing.T) {
	f := newSummaryFixture(t)
	now := f.clock.Now()
	artistID := f.node.Generate()

	gold := f.createTier(t, artistID, "Gold", 2)
	silver := f.createTier(t, artistID, "Silver", 1)

	// Two active subscriptions renewing inside the upcoming window, one
	// canceled subscription that must not count.
	subA := f.createSubscription(t, gold, 1000, subscriptiondomain.StatusActive, now.AddDate(0, 0, 3))
	subB := f.createSubscription(t, gold, 2000, subscriptiondomain.StatusActive, now.AddDate(0, 0, 5))
	f.createSubscription(t, silver, 500, subscriptiondomain.StatusCanceled, now.AddDate(0, 0, 3))

	// Current month: 30.00; previous month: 15.00.
	f.createPaidInvoice(t, subA.ID, 1000, now.AddDate(0, 0, -2))
	f.createPaidInvoice(t, subB.ID, 2000, now.AddDate(0, 0, -1))
	f.createPaidInvoice(t, subA.ID, 1500, now.AddDate(0, -1, -2))

	require.NoError(t, f.db.Create(&failuredomain.PaymentFailure{
		ID:                f.node.Generate(),
		SubscriptionID:    subB.ID,
		ProviderInvoiceID: "in_failed",
		AmountCents:       2000,
		FailureReason:     "card_declined",
		AttemptCount:      1,
		NextRetryAt:       now.Add(24 * time.Hour),
	}).Error)

	summary, err := f.svc.Summary(context.Background(), artistID)
	require.NoError(t, err)

	assert.Equal(t, "30", summary.CurrentMonthRevenue.String())
	assert.Equal(t, "15", summary.PreviousMonthRevenue.String())
	assert.Equal(t, "100", summary.RevenueChangePercent.String())
	assert.Equal(t, int64(2), summary.ActiveSubscriptions)
	assert.Equal(t, int64(2), summary.UpcomingRenewals)
	assert.Equal(t, int64(1), summary.UnresolvedFailures)
	assert.Equal(t, "15", summary.AverageAmount.String())

	require.Len(t, summary.TopTiers, 2)
	assert.Equal(t, "Gold", summary.TopTiers[0].Name)
	assert.Equal(t, "30", summary.TopTiers[0].ActiveRevenue.String())
	assert.Equal(t, "Silver", summary.TopTiers[1].Name)
	assert.True(t, summary.TopTiers[1].ActiveRevenue.IsZero())
}

func TestSummaryZeroPreviousMonthReadsAsFullGrowth(t *testing.T) {
	f := newSummaryFixture(t)
	now := f.clock.Now()
	artistID := f.node.Generate()

	tier := f.createTier(t, artistID, "Supporter", 1)
	subscription := f.createSubscription(t, tier, 500, subscriptiondomain.StatusActive, now.AddDate(0, 0, 10))
	f.createPaidInvoice(t, subscription.ID, 500, now.AddDate(0, 0, -1))

	summary, err := f.svc.Summary(context.Background(), artistID)
	require.NoError(t, err)

	assert.True(t, summary.PreviousMonthRevenue.IsZero())
	assert.Equal(t, "100", summary.RevenueChangePercent.String())
}

func TestSummaryEmptyArtist(t *testing.T) {
	f := newSummaryFixture(t)

	summary, err := f.svc.Summary(context.Background(), f.node.Generate())
	require.NoError(t, err)

	assert.True(t, summary.CurrentMonthRevenue.IsZero())
	assert.Equal(t, int64(0), summary.ActiveSubscriptions)
	assert.True(t, summary.AverageAmount.IsZero())
	assert.Empty(t, summary.TopTiers)
}

func TestRevenueChangePercentRoundsToBasisPoints(t *testing.T) {
	change := revenueChangePercent(1250, 1000)
	assert.Equal(t, "25", change.String())

	change = revenueChangePercent(900, 1000)
	assert.Equal(t, "-10", change.String())

	change = revenueChangePercent(1000, 3000)
	assert.Equal(t, "-66.67", change.String())
}
