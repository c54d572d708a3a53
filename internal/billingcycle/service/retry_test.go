package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	gatewaydomain "github.com/shockvaluemedia/directfanz/internal/gateway/domain"
	failuredomain "github.com/shockvaluemedia/directfanz/internal/paymentfailure/domain"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPaymentFailureCreatesThenIncrements(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	fan := f.createFan(t, "failing@example.com", nil)
	tier := f.createTier(t, f.node.Generate(), "Gold", 1)
	subscription := f.createSubscription(t, fan, tier, 500, subscriptiondomain.StatusActive, now.AddDate(0, 0, 10))

	req := billingcycledomain.RecordPaymentFailureRequest{
		SubscriptionID:    subscription.ID,
		ProviderInvoiceID: "in_failing_1",
		AmountCents:       500,
		FailureReason:     "card_declined",
	}

	event, err := f.svc.RecordPaymentFailure(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, billingcycledomain.EventTypeFailure, event.Type)
	assert.Equal(t, 1, event.Metadata["attemptCount"])

	// Same webhook delivered again: no duplicate row, counter moves.
	req.FailureReason = "insufficient_funds"
	event, err = f.svc.RecordPaymentFailure(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, event.Metadata["attemptCount"])

	var count int64
	require.NoError(t, f.db.Model(&failuredomain.PaymentFailure{}).
		Where("provider_invoice_id = ?", "in_failing_1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	failure, err := f.svc.failurerepo.FindUnresolvedByInvoiceRef(context.Background(), f.db, "in_failing_1")
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, 2, failure.AttemptCount)
	assert.Equal(t, "insufficient_funds", failure.FailureReason)
	assert.Equal(t, now.Add(24*time.Hour), failure.NextRetryAt.UTC())

	reloaded := f.reloadSubscription(t, subscription.ID)
	assert.Equal(t, subscriptiondomain.StatusPastDue, reloaded.Status)
}

func TestRecordPaymentFailureValidatesRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordPaymentFailure(context.Background(), billingcycledomain.RecordPaymentFailureRequest{})
	assert.ErrorIs(t, err, billingcycledomain.ErrInvalidRequest)

	// An invoice reference alone does not identify a subscription.
	_, err = f.svc.RecordPaymentFailure(context.Background(), billingcycledomain.RecordPaymentFailureRequest{
		ProviderInvoiceID: "in_orphan",
	})
	assert.ErrorIs(t, err, billingcycledomain.ErrInvalidRequest)
}

func TestRecordPaymentFailureResolvesProviderRef(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	fan := f.createFan(t, "refonly@example.com", nil)
	tier := f.createTier(t, f.node.Generate(), "Gold", 1)
	subscription := f.createSubscription(t, fan, tier, 500, subscriptiondomain.StatusActive, now.AddDate(0, 0, 10))

	event, err := f.svc.RecordPaymentFailure(context.Background(), billingcycledomain.RecordPaymentFailureRequest{
		ProviderSubscriptionRef: subscription.ProviderSubscriptionID,
		ProviderInvoiceID:       "in_ref_1",
		AmountCents:             500,
		FailureReason:           "card_declined",
	})
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, subscription.ID, event.SubscriptionID)

	failure, err := f.svc.failurerepo.FindUnresolvedByInvoiceRef(context.Background(), f.db, "in_ref_1")
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, subscription.ID, failure.SubscriptionID)

	reloaded := f.reloadSubscription(t, subscription.ID)
	assert.Equal(t, subscriptiondomain.StatusPastDue, reloaded.Status)

	_, err = f.svc.RecordPaymentFailure(context.Background(), billingcycledomain.RecordPaymentFailureRequest{
		ProviderSubscriptionRef: "sub_unknown",
		ProviderInvoiceID:       "in_ref_2",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}

func TestRetryFailedPaymentsResolvesPaidInvoice(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	fan := f.createFan(t, "recovered@example.com", nil)
	tier := f.createTier(t, f.node.Generate(), "Gold", 1)
	subscription := f.createSubscription(t, fan, tier, 500, subscriptiondomain.StatusPastDue, now.AddDate(0, 0, 10))

	f.insertFailure(t, subscription.ID, "in_recovered", 1, now.Add(-time.Hour))

	f.gateway.RetrieveInvoiceFn = func(_ context.Context, ref string) (*gatewaydomain.InvoiceState, error) {
		assert.Equal(t, "in_recovered", ref)
		return &gatewaydomain.InvoiceState{Status: "paid", Paid: true, AttemptCount: 2}, nil
	}

	events, err := f.svc.RetryFailedPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, billingcycledomain.EventTypeRetry, events[0].Type)
	assert.Equal(t, true, events[0].Metadata["resolved"])

	reloaded := f.reloadSubscription(t, subscription.ID)
	assert.Equal(t, subscriptiondomain.StatusActive, reloaded.Status)

	unresolved, err := f.svc.failurerepo.FindUnresolvedByInvoiceRef(context.Background(), f.db, "in_recovered")
	require.NoError(t, err)
	assert.Nil(t, unresolved)
}

func TestRetryFailedPaymentsReschedulesWithGatewayHints(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	fan := f.createFan(t, "retrying@example.com", nil)
	tier := f.createTier(t, f.node.Generate(), "Gold", 1)
	subscription := f.createSubscription(t, fan, tier, 500, subscriptiondomain.StatusPastDue, now.AddDate(0, 0, 10))

	f.insertFailure(t, subscription.ID, "in_retrying", 1, now.Add(-time.Hour))

	nextAttempt := now.Add(36 * time.Hour)
	f.gateway.RetrieveInvoiceFn = func(_ context.Context, _ string) (*gatewaydomain.InvoiceState, error) {
		return &gatewaydomain.InvoiceState{
			Status:             "open",
			AttemptCount:       2,
			NextPaymentAttempt: &nextAttempt,
		}, nil
	}

	events, err := f.svc.RetryFailedPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, billingcycledomain.EventTypeRetry, events[0].Type)
	assert.Equal(t, false, events[0].Metadata["resolved"])
	assert.Equal(t, 2, events[0].Metadata["attemptCount"])

	failure, err := f.svc.failurerepo.FindUnresolvedByInvoiceRef(context.Background(), f.db, "in_retrying")
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, 2, failure.AttemptCount)
	assert.Equal(t, nextAttempt, failure.NextRetryAt.UTC())
}

func TestRetryFailedPaymentsEscalatesAtMaxAttempts(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	fan := f.createFan(t, "exhausted@example.com", nil)
	tier := f.createTier(t, f.node.Generate(), "Gold", 1)
	subscription := f.createSubscription(t, fan, tier, 500, subscriptiondomain.StatusPastDue, now.AddDate(0, 0, 10))

	// Stale local counter: the processor already burned through its
	// attempts even though only one webhook ever arrived.
	f.insertFailure(t, subscription.ID, "in_exhausted", 1, now.Add(-time.Hour))

	f.gateway.RetrieveInvoiceFn = func(_ context.Context, _ string) (*gatewaydomain.InvoiceState, error) {
		return &gatewaydomain.InvoiceState{Status: "open", AttemptCount: 3}, nil
	}

	events, err := f.svc.RetryFailedPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, billingcycledomain.EventTypeCancellation, events[0].Type)
	assert.Equal(t, "payment_failure", events[0].Metadata["reason"])
	assert.Equal(t, int64(3), events[0].Metadata["attemptCount"])

	var stored failuredomain.PaymentFailure
	require.NoError(t, f.db.First(&stored, "provider_invoice_id = ?", "in_exhausted").Error)
	assert.True(t, stored.IsResolved)
	assert.Equal(t, 3, stored.AttemptCount)

	require.Len(t, f.gateway.canceled, 1)
	assert.Equal(t, subscription.ProviderSubscriptionID, f.gateway.canceled[0])

	reloaded := f.reloadSubscription(t, subscription.ID)
	assert.Equal(t, subscriptiondomain.StatusCanceled, reloaded.Status)
	require.NotNil(t, reloaded.CanceledAt)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Subscription Canceled", f.notifier.sent[0].Subject)
}

func (f *fixture) insertFailure(t *testing.T, subscriptionID snowflake.ID, invoiceRef string, attempts int, nextRetryAt time.Time) *failuredomain.PaymentFailure {
	t.Helper()
	failure := &failuredomain.PaymentFailure{
		ID:                f.node.Generate(),
		SubscriptionID:    subscriptionID,
		ProviderInvoiceID: invoiceRef,
		AmountCents:       500,
		FailureReason:     "card_declined",
		AttemptCount:      attempts,
		NextRetryAt:       nextRetryAt,
	}
	require.NoError(t, f.db.Create(failure).Error)
	return failure
}
