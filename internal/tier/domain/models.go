// Package domain contains persistence models for artist tiers.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is a priced subscription plan offered by an artist.
type Tier struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	ArtistID          snowflake.ID `gorm:"not null;index"`
	Name              string       `gorm:"type:text;not null"`
	MinimumPriceCents int64        `gorm:"not null"`
	IsActive          bool         `gorm:"not null;default:true"`
	// SubscriberCount is a denormalized counter maintained transactionally
	// alongside subscription tier reassignment. It must never go negative.
	SubscriberCount int64     `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tier) TableName() string { return "tiers" }

var (
	ErrTierNotFound = errors.New("tier_not_found")
)
