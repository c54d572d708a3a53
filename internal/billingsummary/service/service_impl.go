package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	summarydomain "github.com/shockvaluemedia/directfanz/internal/billingsummary/domain"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	"github.com/shockvaluemedia/directfanz/internal/config"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	failuredomain "github.com/shockvaluemedia/directfanz/internal/paymentfailure/domain"
	"github.com/shockvaluemedia/directfanz/pkg/money"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Billing *config.BillingConfigHolder

	SummaryRepo summarydomain.Repository
	InvoiceRepo invoicedomain.Repository
	FailureRepo failuredomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	cfg   *config.BillingConfigHolder

	summaryrepo summarydomain.Repository
	invoicerepo invoicedomain.Repository
	failurerepo failuredomain.Repository
}

func NewService(p ServiceParam) summarydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingsummary.service"),
		clock: p.Clock,
		cfg:   p.Billing,

		summaryrepo: p.SummaryRepo,
		invoicerepo: p.InvoiceRepo,
		failurerepo: p.FailureRepo,
	}
}

// Summary computes the artist billing dashboard. The reads are
// independent, so they run concurrently and the first error cancels the
// rest.
func (s *Service) Summary(ctx context.Context, artistID snowflake.ID) (*summarydomain.Summary, error) {
	now := s.clock.Now()
	cfg := s.cfg.Get()

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)

	var (
		currentCents  int64
		previousCents int64
		active        summarydomain.ActiveStats
		upcoming      int64
		unresolved    int64
		topTiers      []summarydomain.TierStat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		currentCents, err = s.invoicerepo.PaidRevenueCents(gctx, s.db, artistID, monthStart, now)
		return
	})
	g.Go(func() (err error) {
		previousCents, err = s.invoicerepo.PaidRevenueCents(gctx, s.db, artistID, prevMonthStart, monthStart)
		return
	})
	g.Go(func() (err error) {
		active, err = s.summaryrepo.ActiveStats(gctx, s.db, artistID)
		return
	})
	g.Go(func() (err error) {
		upcoming, err = s.summaryrepo.UpcomingRenewalCount(gctx, s.db, artistID,
			now, now.AddDate(0, 0, cfg.UpcomingRenewalWindowDays))
		return
	})
	g.Go(func() (err error) {
		unresolved, err = s.failurerepo.CountUnresolvedByArtist(gctx, s.db, artistID)
		return
	})
	g.Go(func() (err error) {
		topTiers, err = s.summaryrepo.TopTiers(gctx, s.db, artistID, cfg.TopTierLimit)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summary reads: %w", err)
	}

	for i := range topTiers {
		topTiers[i].ActiveRevenue = money.FromCents(topTiers[i].ActiveRevenueCents)
	}

	average := decimal.Zero
	if active.Count > 0 {
		average = money.FromCents(active.SumCents).DivRound(decimal.NewFromInt(active.Count), 2)
	}

	return &summarydomain.Summary{
		ArtistID:             artistID,
		CurrentMonthRevenue:  money.FromCents(currentCents),
		PreviousMonthRevenue: money.FromCents(previousCents),
		RevenueChangePercent: revenueChangePercent(currentCents, previousCents),
		ActiveSubscriptions:  active.Count,
		UpcomingRenewals:     upcoming,
		UnresolvedFailures:   unresolved,
		AverageAmount:        average,
		TopTiers:             topTiers,
	}, nil
}

// revenueChangePercent reports the month-over-month change. A zero
// previous month reads as a flat 100 percent increase instead of a
// division by zero.
func revenueChangePercent(currentCents, previousCents int64) decimal.Decimal {
	if previousCents == 0 {
		return decimal.NewFromInt(100)
	}
	current := decimal.NewFromInt(currentCents)
	previous := decimal.NewFromInt(previousCents)
	return current.Sub(previous).DivRound(previous, 4).Mul(decimal.NewFromInt(100))
}
