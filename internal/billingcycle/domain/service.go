package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidConfig  = errors.New("invalid_service_config")
)

// Service is the recurring-billing reconciliation engine. Sweep methods
// never fail on a single record: per-record errors are logged, the
// record is skipped, and the partial event list is returned. Methods
// that target one explicit subscription propagate failure instead.
type Service interface {
	// ProcessRenewals refreshes period bounds for ACTIVE subscriptions
	// renewing inside the lookahead window.
	ProcessRenewals(ctx context.Context) ([]Event, error)
	// UpcomingInvoices previews each active subscription's next charge;
	// subscriptions whose gateway fetch fails are omitted.
	UpcomingInvoices(ctx context.Context, req PreviewRequest) ([]UpcomingInvoicePreview, error)
	// SendRenewalReminders emails fans renewing in the reminder window
	// and returns the number of reminders actually sent.
	SendRenewalReminders(ctx context.Context) (int, error)
	// RetryFailedPayments advances the dunning state machine for every
	// failure whose retry time has elapsed.
	RetryFailedPayments(ctx context.Context) ([]Event, error)
	// ApplyScheduledTierChanges applies pending tier changes found on
	// paid, period-ended invoices.
	ApplyScheduledTierChanges(ctx context.Context) ([]Event, error)
	// RecordPaymentFailure upserts the failure state for an invoice and
	// marks the subscription PAST_DUE. Safe to call repeatedly for the
	// same underlying failure.
	RecordPaymentFailure(ctx context.Context, req RecordPaymentFailureRequest) (*Event, error)
	// CycleInfo reports one subscription's current billing cycle using
	// the gateway's authoritative period bounds.
	CycleInfo(ctx context.Context, subscriptionID snowflake.ID) (*CycleInfo, error)
}
