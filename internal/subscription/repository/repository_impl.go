package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	pkgdb "github.com/shockvaluemedia/directfanz/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct{}

func New() subscriptiondomain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.findOne(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	stmt := db.WithContext(ctx)
	if pkgdb.SupportsRowLocking(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findOne(stmt.Where("id = ?", id))
}

func (r *repository) FindByProviderRef(ctx context.Context, db *gorm.DB, providerRef string) (*subscriptiondomain.Subscription, error) {
	return r.findOne(db.WithContext(ctx).Where("provider_subscription_id = ?", providerRef))
}

func (r *repository) DueForRenewal(ctx context.Context, db *gorm.DB, from, to time.Time) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("status = ?", subscriptiondomain.StatusActive).
		Where("current_period_end >= ? AND current_period_end <= ?", from, to).
		Order("current_period_end").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repository) ActiveByArtist(ctx context.Context, db *gorm.DB, artistID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("artist_id = ? AND status = ?", artistID, subscriptiondomain.StatusActive).
		Order("id").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repository) ByArtist(ctx context.Context, db *gorm.DB, artistID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("id").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repository) AllActive(ctx context.Context, db *gorm.DB) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("status = ?", subscriptiondomain.StatusActive).
		Order("id").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repository) UpdatePeriod(ctx context.Context, db *gorm.DB, id snowflake.ID, start, end time.Time, status subscriptiondomain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET current_period_start = ?, current_period_end = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		start,
		end,
		status,
		id,
	).Error
}

func (r *repository) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status subscriptiondomain.Status) error {
	values := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if status == subscriptiondomain.StatusCanceled {
		values["canceled_at"] = time.Now().UTC()
	}
	return db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) ApplyTierChange(ctx context.Context, db *gorm.DB, id, tierID snowflake.ID, amountCents int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET tier_id = ?, amount_cents = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		tierID,
		amountCents,
		id,
	).Error
}

func (r *repository) findOne(stmt *gorm.DB) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := stmt.First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}
