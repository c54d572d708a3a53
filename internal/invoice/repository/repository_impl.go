package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	"gorm.io/gorm"
)

type repository struct{}

func New() invoicedomain.Repository {
	return &repository{}
}

func (r *repository) FindByProviderRef(ctx context.Context, db *gorm.DB, providerRef string) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.WithContext(ctx).Where("provider_invoice_id = ?", providerRef).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("period_start DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	invoice.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(invoice).Error
}

func (r *repository) PaidWithPendingTierChange(ctx context.Context, db *gorm.DB, now time.Time) ([]invoicedomain.Invoice, error) {
	var candidates []invoicedomain.Invoice
	err := db.WithContext(ctx).
		Where("status = ?", invoicedomain.StatusPaid).
		Where("period_end <= ?", now).
		Where("items LIKE ?", "%scheduledTierChange%").
		Order("period_end").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	pending := candidates[:0]
	for _, invoice := range candidates {
		payload, err := invoice.DecodeItems()
		if err != nil {
			continue
		}
		if payload.ScheduledTierChange == nil || payload.ScheduledTierChange.Processed {
			continue
		}
		pending = append(pending, invoice)
	}
	return pending, nil
}

func (r *repository) PaidRevenueCents(ctx context.Context, db *gorm.DB, artistID snowflake.ID, from, to time.Time) (int64, error) {
	var total *int64
	err := db.WithContext(ctx).Raw(
		`SELECT SUM(i.amount_cents)
		 FROM invoices i
		 JOIN subscriptions s ON s.id = i.subscription_id
		 WHERE s.artist_id = ?
		   AND i.status = ?
		   AND i.paid_at >= ? AND i.paid_at < ?`,
		artistID,
		invoicedomain.StatusPaid,
		from,
		to,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
