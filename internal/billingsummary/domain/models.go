// Package domain defines the artist billing summary types.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TierStat is one tier's standing in the artist summary.
type TierStat struct {
	TierID             snowflake.ID    `json:"tier_id"`
	Name               string          `json:"name"`
	SubscriberCount    int64           `json:"subscriber_count"`
	ActiveRevenue      decimal.Decimal `json:"active_revenue"`
	ActiveRevenueCents int64           `json:"-"`
}

// Summary is the artist-facing billing dashboard payload.
type Summary struct {
	ArtistID             snowflake.ID    `json:"artist_id"`
	CurrentMonthRevenue  decimal.Decimal `json:"current_month_revenue"`
	PreviousMonthRevenue decimal.Decimal `json:"previous_month_revenue"`
	RevenueChangePercent decimal.Decimal `json:"revenue_change_percent"`
	ActiveSubscriptions  int64           `json:"active_subscriptions"`
	UpcomingRenewals     int64           `json:"upcoming_renewals"`
	UnresolvedFailures   int64           `json:"unresolved_failures"`
	AverageAmount        decimal.Decimal `json:"average_amount"`
	TopTiers             []TierStat      `json:"top_tiers"`
}

// ActiveStats aggregates an artist's ACTIVE subscriptions.
type ActiveStats struct {
	Count    int64
	SumCents int64
}

// Repository holds the summary's aggregate reads. Each method is an
// independent query so the service can issue them concurrently.
type Repository interface {
	ActiveStats(ctx context.Context, db *gorm.DB, artistID snowflake.ID) (ActiveStats, error)
	// UpcomingRenewalCount counts ACTIVE subscriptions whose period ends
	// inside [from, to].
	UpcomingRenewalCount(ctx context.Context, db *gorm.DB, artistID snowflake.ID, from, to time.Time) (int64, error)
	// TopTiers returns the artist's tiers ordered by subscriber count,
	// each with its ACTIVE subscription revenue.
	TopTiers(ctx context.Context, db *gorm.DB, artistID snowflake.ID, limit int) ([]TierStat, error)
}

// Service computes the artist billing summary.
type Service interface {
	Summary(ctx context.Context, artistID snowflake.ID) (*Summary, error)
}
