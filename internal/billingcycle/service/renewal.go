package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	"github.com/shockvaluemedia/directfanz/internal/notifier"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	"github.com/shockvaluemedia/directfanz/pkg/money"
	"go.uber.org/zap"
)

// ProcessRenewals scans ACTIVE subscriptions whose period ends inside
// the lookahead window, refreshes their period bounds and status from
// the gateway, and confirms the renewal to the fan. One subscription's
// failure never aborts the sweep.
func (s *Service) ProcessRenewals(ctx context.Context) ([]billingcycledomain.Event, error) {
	now := s.clock.Now()
	window := s.cfg.Get().RenewalLookahead

	due, err := s.subscriptionrepo.DueForRenewal(ctx, s.db, now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("list renewals due: %w", err)
	}

	events := make([]billingcycledomain.Event, 0, len(due))
	for _, subscription := range due {
		event, err := s.processRenewal(ctx, subscription)
		if err != nil {
			s.log.Error("renewal processing failed",
				zap.String("subscription_id", subscription.ID.String()),
				zap.Error(err),
			)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *Service) processRenewal(ctx context.Context, subscription subscriptiondomain.Subscription) (billingcycledomain.Event, error) {
	state, err := s.gateway.RetrieveSubscription(ctx, subscription.ProviderSubscriptionID)
	if err != nil {
		return billingcycledomain.Event{}, fmt.Errorf("retrieve gateway subscription: %w", err)
	}

	// The gateway's period bounds and status are authoritative.
	status := mapGatewayStatus(state.Status, subscription.Status)
	if err := s.subscriptionrepo.UpdatePeriod(ctx, s.db, subscription.ID, state.CurrentPeriodStart, state.CurrentPeriodEnd, status); err != nil {
		return billingcycledomain.Event{}, fmt.Errorf("persist renewed period: %w", err)
	}

	s.sendRenewalConfirmation(ctx, subscription, state.CurrentPeriodEnd)

	return s.newEvent(billingcycledomain.EventTypeRenewal, subscription.ID, subscription.AmountCents, map[string]any{
		"periodStart": state.CurrentPeriodStart,
		"periodEnd":   state.CurrentPeriodEnd,
	}), nil
}

func (s *Service) sendRenewalConfirmation(ctx context.Context, subscription subscriptiondomain.Subscription, nextBillingAt time.Time) {
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

	email := notifier.RenewalEmail(fan.Email, notifier.RenewalData{
		FanName:       fan.DisplayName,
		TierName:      s.tierNameOrDefault(ctx, subscription.TierID),
		Amount:        money.FromCents(subscription.AmountCents),
		RenewedAt:     s.clock.Now(),
		NextBillingAt: nextBillingAt,
	})
	s.notify(ctx, email, subscription.ID)
}

// UpcomingInvoices previews the next charge for each active
// subscription in scope, converting amounts to decimal and summing
// proration lines. Subscriptions whose gateway fetch fails are omitted.
func (s *Service) UpcomingInvoices(ctx context.Context, req billingcycledomain.PreviewRequest) ([]billingcycledomain.UpcomingInvoicePreview, error) {
	var (
		subscriptions []subscriptiondomain.Subscription
		err           error
	)
	if req.ArtistID != 0 {
		subscriptions, err = s.subscriptionrepo.ActiveByArtist(ctx, s.db, req.ArtistID)
	} else {
		subscriptions, err = s.subscriptionrepo.AllActive(ctx, s.db)
	}
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}

	previews := make([]billingcycledomain.UpcomingInvoicePreview, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		upcoming, err := s.gateway.RetrieveUpcomingInvoice(ctx, subscription.ProviderSubscriptionID)
		if err != nil {
			s.log.Warn("upcoming invoice fetch failed",
				zap.String("subscription_id", subscription.ID.String()),
				zap.Error(err),
			)
			continue
		}

		var prorationCents int64
		for _, line := range upcoming.Lines {
			if line.Proration {
				prorationCents += line.AmountCents
			}
		}

		previews = append(previews, billingcycledomain.UpcomingInvoicePreview{
			SubscriptionID:  subscription.ID,
			FanID:           subscription.FanID,
			ArtistID:        subscription.ArtistID,
			AmountDue:       money.FromCents(upcoming.AmountDueCents),
			ProrationAmount: money.FromCents(prorationCents),
			DueAt:           upcoming.DueAt,
			PeriodStart:     upcoming.PeriodStart,
			PeriodEnd:       upcoming.PeriodEnd,
		})
	}
	return previews, nil
}

// SendRenewalReminders emails fans whose subscription renews in the
// 24-hour slice placed ReminderLeadDays out, skipping fans who disabled
// billing email. It returns the number of reminders actually sent.
func (s *Service) SendRenewalReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	lead := s.cfg.Get().ReminderLeadDays

	from := now.AddDate(0, 0, lead-1)
	to := now.AddDate(0, 0, lead)

	due, err := s.subscriptionrepo.DueForRenewal(ctx, s.db, from, to)
	if err != nil {
		return 0, fmt.Errorf("list reminders due: %w", err)
	}

	sent := 0
	for _, subscription := range due {
		fan, err := s.loadFan(ctx, subscription.FanID)
		if err != nil {
			s.log.Error("fan lookup failed",
				zap.String("subscription_id", subscription.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if fan == nil || !fan.WantsBillingEmail() {
			continue
		}

		tierName := s.tierNameOrDefault(ctx, subscription.TierID)
		email := notifier.ReminderEmail(fan.Email, notifier.ReminderData{
			FanName:  fan.DisplayName,
			TierName: tierName,
			Amount:   money.FromCents(subscription.AmountCents),
			RenewsAt: subscription.CurrentPeriodEnd,
		})
		if s.notify(ctx, email, subscription.ID) {
			sent++
		}
	}
	return sent, nil
}

// CycleInfo reports one subscription's billing cycle, preferring the
// gateway's authoritative period bounds. Unlike the sweeps, failures
// propagate to the caller.
func (s *Service) CycleInfo(ctx context.Context, subscriptionID snowflake.ID) (*billingcycledomain.CycleInfo, error) {
	subscription, err := s.subscriptionrepo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}

	info := &billingcycledomain.CycleInfo{
		SubscriptionID:     subscription.ID,
		Status:             subscription.Status,
		Amount:             money.FromCents(subscription.AmountCents),
		CurrentPeriodStart: subscription.CurrentPeriodStart,
		CurrentPeriodEnd:   subscription.CurrentPeriodEnd,
		NextBillingAt:      subscription.CurrentPeriodEnd,
	}

	state, err := s.gateway.RetrieveSubscription(ctx, subscription.ProviderSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("retrieve gateway subscription: %w", err)
	}
	info.Status = mapGatewayStatus(state.Status, subscription.Status)
	info.CurrentPeriodStart = state.CurrentPeriodStart
	info.CurrentPeriodEnd = state.CurrentPeriodEnd
	info.NextBillingAt = state.CurrentPeriodEnd

	return info, nil
}

func (s *Service) tierNameOrDefault(ctx context.Context, tierID snowflake.ID) string {
	tier, err := s.loadTier(ctx, tierID)
	if err != nil || tier == nil {
		return "your subscription"
	}
	return tier.Name
}
