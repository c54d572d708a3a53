package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByProviderRef(ctx context.Context, db *gorm.DB, providerRef string) (*Subscription, error)
	// DueForRenewal returns ACTIVE subscriptions whose period ends inside
	// [from, to], ordered by period end.
	DueForRenewal(ctx context.Context, db *gorm.DB, from, to time.Time) ([]Subscription, error)
	ActiveByArtist(ctx context.Context, db *gorm.DB, artistID snowflake.ID) ([]Subscription, error)
	// ByArtist returns all of an artist's subscriptions regardless of
	// status; invoice history matters most for PAST_DUE and CANCELED ones.
	ByArtist(ctx context.Context, db *gorm.DB, artistID snowflake.ID) ([]Subscription, error)
	AllActive(ctx context.Context, db *gorm.DB) ([]Subscription, error)
	UpdatePeriod(ctx context.Context, db *gorm.DB, id snowflake.ID, start, end time.Time, status Status) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	// ApplyTierChange moves the subscription to a new tier and amount.
	// Callers run it inside the transaction that adjusts tier counters.
	ApplyTierChange(ctx context.Context, db *gorm.DB, id, tierID snowflake.ID, amountCents int64) error
}
