// Package seed bootstraps demo billing data for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	fandomain "github.com/shockvaluemedia/directfanz/internal/fan/domain"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	tierdomain "github.com/shockvaluemedia/directfanz/internal/tier/domain"
	"gorm.io/gorm"
)

const (
	demoFanEmail   = "fan@directfanz.local"
	demoFanDisplay = "Demo Fan"
	demoTierName   = "Supporter"
)

// EnsureDemoData seeds one artist tier, one fan, and one active
// subscription so a fresh local install has something to reconcile.
// Existing rows are left untouched.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fan, err := ensureDemoFanTx(ctx, tx, node)
		if err != nil {
			return err
		}
		tier, err := ensureDemoTierTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureDemoSubscriptionTx(ctx, tx, node, fan, tier)
	})
}

func ensureDemoFanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*fandomain.Fan, error) {
	var fan fandomain.Fan
	err := tx.WithContext(ctx).Where("email = ?", demoFanEmail).First(&fan).Error
	if err == nil {
		return &fan, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fan = fandomain.Fan{
		ID:          node.Generate(),
		Email:       demoFanEmail,
		DisplayName: demoFanDisplay,
	}
	if err := tx.WithContext(ctx).Create(&fan).Error; err != nil {
		return nil, err
	}
	return &fan, nil
}

func ensureDemoTierTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*tierdomain.Tier, error) {
	var tier tierdomain.Tier
	err := tx.WithContext(ctx).Where("name = ?", demoTierName).First(&tier).Error
	if err == nil {
		return &tier, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tier = tierdomain.Tier{
		ID:                node.Generate(),
		ArtistID:          node.Generate(),
		Name:              demoTierName,
		MinimumPriceCents: 500,
		IsActive:          true,
	}
	if err := tx.WithContext(ctx).Create(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func ensureDemoSubscriptionTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, fan *fandomain.Fan, tier *tierdomain.Tier) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("fan_id = ?", fan.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	subscription := subscriptiondomain.Subscription{
		ID:                     node.Generate(),
		FanID:                  fan.ID,
		ArtistID:               tier.ArtistID,
		TierID:                 tier.ID,
		AmountCents:            tier.MinimumPriceCents,
		Status:                 subscriptiondomain.StatusActive,
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       now.AddDate(0, 1, 0),
		ProviderSubscriptionID: "sub_demo_" + node.Generate().String(),
	}
	if err := tx.WithContext(ctx).Create(&subscription).Error; err != nil {
		return err
	}

	return tx.WithContext(ctx).
		Model(&tierdomain.Tier{}).
		Where("id = ?", tier.ID).
		UpdateColumn("subscriber_count", gorm.Expr("subscriber_count + 1")).Error
}
