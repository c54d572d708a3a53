package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tier, error)
	// AdjustSubscriberCount applies delta to the tier's counter, clamping
	// at zero. Callers run it inside the same transaction that moves the
	// subscription.
	AdjustSubscriberCount(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) error
}
