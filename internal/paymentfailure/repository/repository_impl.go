package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	failuredomain "github.com/shockvaluemedia/directfanz/internal/paymentfailure/domain"
	pkgdb "github.com/shockvaluemedia/directfanz/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct{}

func New() failuredomain.Repository {
	return &repository{}
}

func (r *repository) FindUnresolvedByInvoiceRef(ctx context.Context, db *gorm.DB, providerInvoiceID string) (*failuredomain.PaymentFailure, error) {
	return r.findOne(db.WithContext(ctx).
		Where("provider_invoice_id = ? AND is_resolved = ?", providerInvoiceID, false))
}

func (r *repository) FindUnresolvedByInvoiceRefForUpdate(ctx context.Context, db *gorm.DB, providerInvoiceID string) (*failuredomain.PaymentFailure, error) {
	stmt := db.WithContext(ctx)
	if pkgdb.SupportsRowLocking(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findOne(stmt.Where("provider_invoice_id = ? AND is_resolved = ?", providerInvoiceID, false))
}

func (r *repository) DueForRetry(ctx context.Context, db *gorm.DB, now time.Time) ([]failuredomain.PaymentFailure, error) {
	var failures []failuredomain.PaymentFailure
	err := db.WithContext(ctx).
		Where("is_resolved = ? AND next_retry_at <= ?", false, now).
		Order("next_retry_at").
		Find(&failures).Error
	if err != nil {
		return nil, err
	}
	return failures, nil
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, failure *failuredomain.PaymentFailure) error {
	return db.WithContext(ctx).Create(failure).Error
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, failure *failuredomain.PaymentFailure) error {
	failure.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(failure).Error
}

func (r *repository) CountUnresolvedByArtist(ctx context.Context, db *gorm.DB, artistID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM payment_failures f
		 JOIN subscriptions s ON s.id = f.subscription_id
		 WHERE s.artist_id = ? AND f.is_resolved = ?`,
		artistID,
		false,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) findOne(stmt *gorm.DB) (*failuredomain.PaymentFailure, error) {
	var failure failuredomain.PaymentFailure
	err := stmt.Order("created_at").First(&failure).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &failure, nil
}
