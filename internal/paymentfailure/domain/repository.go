package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindUnresolvedByInvoiceRef(ctx context.Context, db *gorm.DB, providerInvoiceID string) (*PaymentFailure, error)
	FindUnresolvedByInvoiceRefForUpdate(ctx context.Context, db *gorm.DB, providerInvoiceID string) (*PaymentFailure, error)
	// DueForRetry returns unresolved failures whose NextRetryAt has
	// elapsed, ordered oldest first.
	DueForRetry(ctx context.Context, db *gorm.DB, now time.Time) ([]PaymentFailure, error)
	Insert(ctx context.Context, db *gorm.DB, failure *PaymentFailure) error
	Update(ctx context.Context, db *gorm.DB, failure *PaymentFailure) error
	CountUnresolvedByArtist(ctx context.Context, db *gorm.DB, artistID snowflake.ID) (int64, error)
}
