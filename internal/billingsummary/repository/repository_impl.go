package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	summarydomain "github.com/shockvaluemedia/directfanz/internal/billingsummary/domain"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	"gorm.io/gorm"
)

type repository struct{}

func New() summarydomain.Repository {
	return &repository{}
}

func (r *repository) ActiveStats(ctx context.Context, db *gorm.DB, artistID snowflake.ID) (summarydomain.ActiveStats, error) {
	var row struct {
		Count    int64
		SumCents *int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS count, SUM(amount_cents) AS sum_cents
		 FROM subscriptions
		 WHERE artist_id = ? AND status = ?`,
		artistID,
		subscriptiondomain.StatusActive,
	).Scan(&row).Error
	if err != nil {
		return summarydomain.ActiveStats{}, err
	}
	stats := summarydomain.ActiveStats{Count: row.Count}
	if row.SumCents != nil {
		stats.SumCents = *row.SumCents
	}
	return stats, nil
}

func (r *repository) UpcomingRenewalCount(ctx context.Context, db *gorm.DB, artistID snowflake.ID, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("artist_id = ? AND status = ? AND current_period_end BETWEEN ? AND ?",
			artistID, subscriptiondomain.StatusActive, from, to).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) TopTiers(ctx context.Context, db *gorm.DB, artistID snowflake.ID, limit int) ([]summarydomain.TierStat, error) {
	var stats []summarydomain.TierStat
	err := db.WithContext(ctx).Raw(
		`SELECT t.id AS tier_id,
		        t.name AS name,
		        t.subscriber_count AS subscriber_count,
		        COALESCE(SUM(CASE WHEN s.status = ? THEN s.amount_cents ELSE 0 END), 0) AS active_revenue_cents
		 FROM tiers t
		 LEFT JOIN subscriptions s ON s.tier_id = t.id
		 WHERE t.artist_id = ?
		 GROUP BY t.id, t.name, t.subscriber_count
		 ORDER BY t.subscriber_count DESC
		 LIMIT ?`,
		subscriptiondomain.StatusActive,
		artistID,
		limit,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
