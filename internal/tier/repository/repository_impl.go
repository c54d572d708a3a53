package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	tierdomain "github.com/shockvaluemedia/directfanz/internal/tier/domain"
	"gorm.io/gorm"
)

type repository struct{}

func New() tierdomain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*tierdomain.Tier, error) {
	var tier tierdomain.Tier
	err := db.WithContext(ctx).Where("id = ?", id).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repository) AdjustSubscriberCount(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tiers
		 SET subscriber_count = CASE
		     WHEN subscriber_count + ? < 0 THEN 0
		     ELSE subscriber_count + ?
		 END,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta,
		delta,
		id,
	).Error
}
