// Package domain contains persistence models for fan subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
)

// Subscription captures a fan's paid relationship to an artist's tier.
// Rows are never hard-deleted; end-of-life is modeled by status.
type Subscription struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	FanID    snowflake.ID `gorm:"not null;index"`
	ArtistID snowflake.ID `gorm:"not null;index"`
	TierID   snowflake.ID `gorm:"not null;index"`
	// AmountCents equals the tier's price at last sync unless a scheduled
	// tier change is pending on a paid invoice.
	AmountCents            int64      `gorm:"not null"`
	Status                 Status     `gorm:"type:text;not null"`
	CurrentPeriodStart     time.Time  `gorm:"not null"`
	CurrentPeriodEnd       time.Time  `gorm:"not null;index"`
	ProviderSubscriptionID string     `gorm:"type:text;not null;uniqueIndex"`
	CanceledAt             *time.Time `gorm:""`
	CreatedAt              time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
