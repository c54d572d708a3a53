// Package domain contains persistence models for payment-failure dunning.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentFailure tracks a failing invoice's retry state. At most one
// unresolved row exists per provider invoice reference; repeat failures
// increment AttemptCount instead of inserting duplicates.
type PaymentFailure struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	SubscriptionID    snowflake.ID `gorm:"not null;index"`
	ProviderInvoiceID string       `gorm:"type:text;not null;index"`
	AmountCents       int64        `gorm:"not null"`
	FailureReason     string       `gorm:"type:text;not null"`
	AttemptCount      int          `gorm:"not null;default:1"`
	NextRetryAt       time.Time    `gorm:"not null;index"`
	IsResolved        bool         `gorm:"not null;default:false"`
	ResolvedAt        *time.Time   `gorm:""`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PaymentFailure) TableName() string { return "payment_failures" }
