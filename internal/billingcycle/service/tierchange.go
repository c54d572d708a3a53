package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	"github.com/shockvaluemedia/directfanz/internal/notifier"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	tierdomain "github.com/shockvaluemedia/directfanz/internal/tier/domain"
	"github.com/shockvaluemedia/directfanz/pkg/db"
	"github.com/shockvaluemedia/directfanz/pkg/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApplyScheduledTierChanges applies the deferred plan moves embedded in
// paid, period-ended invoices. Each change runs in its own transaction
// covering the subscription, both tier counters, and the invoice's
// processed flag, so a crash mid-change leaves it pending for the next
// sweep.
func (s *Service) ApplyScheduledTierChanges(ctx context.Context) ([]billingcycledomain.Event, error) {
	now := s.clock.Now()

	invoices, err := s.invoicerepo.PaidWithPendingTierChange(ctx, s.db, now)
	if err != nil {
		return nil, fmt.Errorf("list pending tier changes: %w", err)
	}

	events := make([]billingcycledomain.Event, 0, len(invoices))
	for i := range invoices {
		event, applied, err := s.applyTierChange(ctx, &invoices[i])
		if err != nil {
			s.log.Error("tier change application failed",
				zap.String("invoice_id", invoices[i].ID.String()),
				zap.String("subscription_id", invoices[i].SubscriptionID.String()),
				zap.Error(err),
			)
			continue
		}
		if applied {
			events = append(events, event)
		}
	}
	return events, nil
}

func (s *Service) applyTierChange(ctx context.Context, invoice *invoicedomain.Invoice) (billingcycledomain.Event, bool, error) {
	payload, err := invoice.DecodeItems()
	if err != nil {
		return billingcycledomain.Event{}, false, err
	}
	change := payload.ScheduledTierChange
	if change == nil || change.Processed {
		return billingcycledomain.Event{}, false, nil
	}

	newTierID, err := strconv.ParseInt(change.NewTierID, 10, 64)
	if err != nil {
		return billingcycledomain.Event{}, false, fmt.Errorf("parse target tier id %q: %w", change.NewTierID, err)
	}

	subscription, err := s.subscriptionrepo.FindByID(ctx, s.db, invoice.SubscriptionID)
	if err != nil {
		return billingcycledomain.Event{}, false, err
	}
	if subscription == nil {
		return billingcycledomain.Event{}, false, subscriptiondomain.ErrSubscriptionNotFound
	}

	// A missing target tier leaves the change pending rather than
	// silently dropping it.
	newTier, err := s.loadTier(ctx, snowflake.ID(newTierID))
	if err != nil {
		return billingcycledomain.Event{}, false, err
	}
	if newTier == nil {
		return billingcycledomain.Event{}, false, tierdomain.ErrTierNotFound
	}

	oldTierID := subscription.TierID
	oldAmountCents := subscription.AmountCents
	isUpgrade := change.NewAmountCents > oldAmountCents
	now := s.clock.Now()

	err = db.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		// Re-read under lock so two overlapping sweeps cannot both apply
		// the same change.
		locked, err := s.subscriptionrepo.FindByIDForUpdate(ctx, tx, subscription.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		if err := s.subscriptionrepo.ApplyTierChange(ctx, tx, subscription.ID, newTier.ID, change.NewAmountCents); err != nil {
			return fmt.Errorf("move subscription: %w", err)
		}
		if err := s.tierrepo.AdjustSubscriberCount(ctx, tx, locked.TierID, -1); err != nil {
			return fmt.Errorf("decrement old tier: %w", err)
		}
		if err := s.tierrepo.AdjustSubscriberCount(ctx, tx, newTier.ID, 1); err != nil {
			return fmt.Errorf("increment new tier: %w", err)
		}

		change.Processed = true
		change.ProcessedAt = &now
		payload.ScheduledTierChange = change
		if err := invoice.EncodeItems(payload); err != nil {
			return err
		}
		return s.invoicerepo.Update(ctx, tx, invoice)
	})
	if err != nil {
		return billingcycledomain.Event{}, false, err
	}

	s.sendTierChangeNotice(ctx, subscription, oldTierID, newTier, change.NewAmountCents)

	metadata := map[string]any{
		"tierChange": billingcycledomain.TierChangeMetadata{
			FromTierID: oldTierID.String(),
			ToTierID:   newTier.ID.String(),
			FromAmount: money.FromCents(oldAmountCents),
			ToAmount:   money.FromCents(change.NewAmountCents),
			IsUpgrade:  isUpgrade,
		},
	}
	return s.newEvent(billingcycledomain.EventTypeRenewal, subscription.ID, change.NewAmountCents, metadata), true, nil
}

func (s *Service) sendTierChangeNotice(ctx context.Context, subscription *subscriptiondomain.Subscription, oldTierID snowflake.ID, newTier *tierdomain.Tier, newAmountCents int64) {
	fan, err := s.loadFan(ctx, subscription.FanID)
	if err != nil || fan == nil || !fan.WantsBillingEmail() {
		if err != nil {
			s.log.Warn("fan lookup failed",
				zap.String("subscription_id", subscription.ID.String()),
				zap.Error(err),
			)
		}
		return
	}
	email := notifier.TierChangeEmail(fan.Email, notifier.TierChangeData{
		FanName:  fan.DisplayName,
		FromTier: s.tierNameOrDefault(ctx, oldTierID),
		ToTier:   newTier.Name,
		Amount:   money.FromCents(newAmountCents),
	})
	s.notify(ctx, email, subscription.ID)
}
