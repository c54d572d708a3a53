// Package domain contains persistence models for fans.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Fan is a paying subscriber.
type Fan struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Email       string       `gorm:"type:text;not null;uniqueIndex"`
	DisplayName string       `gorm:"type:text;not null"`
	// BillingNotifications is nil unless the fan explicitly chose a
	// preference; only an explicit false suppresses billing email.
	BillingNotifications *bool     `gorm:""`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Fan) TableName() string { return "fans" }

// WantsBillingEmail reports whether billing notifications may be sent.
func (f Fan) WantsBillingEmail() bool {
	return f.BillingNotifications == nil || *f.BillingNotifications
}
