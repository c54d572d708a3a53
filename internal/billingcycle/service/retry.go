package service

import (
	"context"
	"fmt"
	"time"

	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	"github.com/shockvaluemedia/directfanz/internal/notifier"
	failuredomain "github.com/shockvaluemedia/directfanz/internal/paymentfailure/domain"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	"github.com/shockvaluemedia/directfanz/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RetryFailedPayments advances the dunning state machine for every
// unresolved failure whose retry time has elapsed. Each failure lands in
// one of three states: resolved (the invoice got paid), canceled (the
// processor exhausted its attempts), or rescheduled for another retry.
func (s *Service) RetryFailedPayments(ctx context.Context) ([]billingcycledomain.Event, error) {
	now := s.clock.Now()

	due, err := s.failurerepo.DueForRetry(ctx, s.db, now)
	if err != nil {
		return nil, fmt.Errorf("list retries due: %w", err)
	}

	events := make([]billingcycledomain.Event, 0, len(due))
	for i := range due {
		event, err := s.retryFailure(ctx, &due[i])
		if err != nil {
			s.log.Error("payment retry failed",
				zap.String("subscription_id", due[i].SubscriptionID.String()),
				zap.String("provider_invoice_id", due[i].ProviderInvoiceID),
				zap.Error(err),
			)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *Service) retryFailure(ctx context.Context, failure *failuredomain.PaymentFailure) (billingcycledomain.Event, error) {
	state, err := s.gateway.RetrieveInvoice(ctx, failure.ProviderInvoiceID)
	if err != nil {
		return billingcycledomain.Event{}, fmt.Errorf("retrieve gateway invoice: %w", err)
	}

	switch {
	case invoicePaid(state):
		return s.resolveFailure(ctx, failure)
	case state.AttemptCount >= int64(s.cfg.Get().MaxRetryAttempts):
		return s.escalateFailure(ctx, failure, state.AttemptCount)
	default:
		return s.rescheduleFailure(ctx, failure, state.AttemptCount, state.NextPaymentAttempt)
	}
}

func (s *Service) resolveFailure(ctx context.Context, failure *failuredomain.PaymentFailure) (billingcycledomain.Event, error) {
	now := s.clock.Now()
	err := db.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		failure.IsResolved = true
		failure.ResolvedAt = &now
		if err := s.failurerepo.Update(ctx, tx, failure); err != nil {
			return fmt.Errorf("resolve failure record: %w", err)
		}
		if err := s.subscriptionrepo.UpdateStatus(ctx, tx, failure.SubscriptionID, subscriptiondomain.StatusActive); err != nil {
			return fmt.Errorf("reactivate subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return billingcycledomain.Event{}, err
	}

	return s.newEvent(billingcycledomain.EventTypeRetry, failure.SubscriptionID, failure.AmountCents, map[string]any{
		"resolved":     true,
		"attemptCount": failure.AttemptCount,
	}), nil
}

func (s *Service) escalateFailure(ctx context.Context, failure *failuredomain.PaymentFailure, gatewayAttempts int64) (billingcycledomain.Event, error) {
	subscription, err := s.subscriptionrepo.FindByID(ctx, s.db, failure.SubscriptionID)
	if err != nil {
		return billingcycledomain.Event{}, err
	}
	if subscription == nil {
		return billingcycledomain.Event{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	if err := s.gateway.CancelSubscription(ctx, subscription.ProviderSubscriptionID); err != nil {
		return billingcycledomain.Event{}, fmt.Errorf("cancel gateway subscription: %w", err)
	}

	now := s.clock.Now()
	err = db.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.subscriptionrepo.UpdateStatus(ctx, tx, subscription.ID, subscriptiondomain.StatusCanceled); err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}
		// Terminal state for the failure row, otherwise the sweep keeps
		// selecting it after the subscription is gone. The processor's
		// attempt count is the one that triggered the escalation, so the
		// row and the event both carry it rather than the local counter.
		failure.AttemptCount = int(gatewayAttempts)
		failure.IsResolved = true
		failure.ResolvedAt = &now
		return s.failurerepo.Update(ctx, tx, failure)
	})
	if err != nil {
		return billingcycledomain.Event{}, err
	}

	s.sendCancellationNotice(ctx, subscription)

	return s.newEvent(billingcycledomain.EventTypeCancellation, subscription.ID, failure.AmountCents, map[string]any{
		"reason":       "payment_failure",
		"attemptCount": gatewayAttempts,
	}), nil
}

func (s *Service) rescheduleFailure(ctx context.Context, failure *failuredomain.PaymentFailure, gatewayAttempts int64, nextAttempt *time.Time) (billingcycledomain.Event, error) {
	if gatewayAttempts > 0 {
		failure.AttemptCount = int(gatewayAttempts)
	} else {
		failure.AttemptCount++
	}
	if nextAttempt != nil {
		failure.NextRetryAt = nextAttempt.UTC()
	} else {
		failure.NextRetryAt = s.clock.Now().Add(s.retryInterval())
	}

	if err := s.failurerepo.Update(ctx, s.db, failure); err != nil {
		return billingcycledomain.Event{}, fmt.Errorf("reschedule failure record: %w", err)
	}

	return s.newEvent(billingcycledomain.EventTypeRetry, failure.SubscriptionID, failure.AmountCents, map[string]any{
		"resolved":     false,
		"attemptCount": failure.AttemptCount,
		"nextRetryAt":  failure.NextRetryAt,
	}), nil
}

func (s *Service) sendCancellationNotice(ctx context.Context, subscription *subscriptiondomain.Subscription) {
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
	email := notifier.CancellationEmail(fan.Email, notifier.CancellationData{
		FanName:  fan.DisplayName,
		TierName: s.tierNameOrDefault(ctx, subscription.TierID),
	})
	s.notify(ctx, email, subscription.ID)
}

// RecordPaymentFailure upserts the failure state for a processor invoice
// and marks the subscription PAST_DUE. The existing-record lookup runs
// under a row lock inside the transaction, so repeated webhook delivery
// increments the attempt counter instead of inserting duplicates.
func (s *Service) RecordPaymentFailure(ctx context.Context, req billingcycledomain.RecordPaymentFailureRequest) (*billingcycledomain.Event, error) {
	if req.ProviderInvoiceID == "" {
		return nil, billingcycledomain.ErrInvalidRequest
	}
	if req.SubscriptionID == 0 {
		// Processor webhooks often carry only their own subscription
		// reference; resolve it to the local row before recording.
		if req.ProviderSubscriptionRef == "" {
			return nil, billingcycledomain.ErrInvalidRequest
		}
		subscription, err := s.subscriptionrepo.FindByProviderRef(ctx, s.db, req.ProviderSubscriptionRef)
		if err != nil {
			return nil, fmt.Errorf("resolve provider subscription: %w", err)
		}
		if subscription == nil {
			return nil, subscriptiondomain.ErrSubscriptionNotFound
		}
		req.SubscriptionID = subscription.ID
	}

	now := s.clock.Now()
	var failure *failuredomain.PaymentFailure

	err := db.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := s.failurerepo.FindUnresolvedByInvoiceRefForUpdate(ctx, tx, req.ProviderInvoiceID)
		if err != nil {
			return fmt.Errorf("find failure record: %w", err)
		}

		if existing != nil {
			existing.AttemptCount++
			existing.FailureReason = req.FailureReason
			existing.NextRetryAt = now.Add(s.retryInterval())
			if err := s.failurerepo.Update(ctx, tx, existing); err != nil {
				return fmt.Errorf("update failure record: %w", err)
			}
			failure = existing
		} else {
			failure = &failuredomain.PaymentFailure{
				ID:                s.genID.Generate(),
				SubscriptionID:    req.SubscriptionID,
				ProviderInvoiceID: req.ProviderInvoiceID,
				AmountCents:       req.AmountCents,
				FailureReason:     req.FailureReason,
				AttemptCount:      1,
				NextRetryAt:       now.Add(s.retryInterval()),
			}
			if err := s.failurerepo.Insert(ctx, tx, failure); err != nil {
				return fmt.Errorf("insert failure record: %w", err)
			}
		}

		return s.subscriptionrepo.UpdateStatus(ctx, tx, req.SubscriptionID, subscriptiondomain.StatusPastDue)
	})
	if err != nil {
		return nil, err
	}

	event := s.newEvent(billingcycledomain.EventTypeFailure, req.SubscriptionID, req.AmountCents, map[string]any{
		"attemptCount":      failure.AttemptCount,
		"failureReason":     req.FailureReason,
		"providerInvoiceId": req.ProviderInvoiceID,
	})
	return &event, nil
}
