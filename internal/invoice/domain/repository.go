package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByProviderRef(ctx context.Context, db *gorm.DB, providerRef string) (*Invoice, error)
	FindBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]Invoice, error)
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// PaidWithPendingTierChange returns PAID invoices whose period has
	// ended and whose items payload still carries an unprocessed
	// scheduledTierChange. The scan is keyed on the JSON text; callers
	// re-check the decoded payload before acting.
	PaidWithPendingTierChange(ctx context.Context, db *gorm.DB, now time.Time) ([]Invoice, error)
	// PaidRevenueCents sums paid invoice amounts for an artist's
	// subscriptions over a paid-at window.
	PaidRevenueCents(ctx context.Context, db *gorm.DB, artistID snowflake.ID, from, to time.Time) (int64, error)
}
