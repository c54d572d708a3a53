// Package domain defines the reconciliation core's event and request
// types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
)

// EventType classifies a reconciliation outcome.
type EventType string

const (
	EventTypeRenewal      EventType = "renewal"
	EventTypeFailure      EventType = "failure"
	EventTypeRetry        EventType = "retry"
	EventTypeCancellation EventType = "cancellation"
)

// Event is the transient audit record returned by every reconciliation
// entry point. Events are not persisted; the caller owns them.
type Event struct {
	Type           EventType      `json:"type"`
	SubscriptionID snowflake.ID   `json:"subscription_id"`
	Amount         decimal.Decimal `json:"amount"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// TierChangeMetadata describes an applied scheduled tier change inside a
// renewal event's metadata.
type TierChangeMetadata struct {
	FromTierID string          `json:"fromTierId"`
	ToTierID   string          `json:"toTierId"`
	FromAmount decimal.Decimal `json:"fromAmount"`
	ToAmount   decimal.Decimal `json:"toAmount"`
	IsUpgrade  bool            `json:"isUpgrade"`
}

// UpcomingInvoicePreview is one subscription's not-yet-finalized charge.
type UpcomingInvoicePreview struct {
	SubscriptionID  snowflake.ID    `json:"subscription_id"`
	FanID           snowflake.ID    `json:"fan_id"`
	ArtistID        snowflake.ID    `json:"artist_id"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	ProrationAmount decimal.Decimal `json:"proration_amount"`
	DueAt           *time.Time      `json:"due_at,omitempty"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
}

// PreviewRequest scopes the upcoming-invoice preview. A zero ArtistID
// previews every active subscription.
type PreviewRequest struct {
	ArtistID snowflake.ID
}

// RecordPaymentFailureRequest is the webhook-facing failure signal.
type RecordPaymentFailureRequest struct {
	// SubscriptionID may be zero when ProviderSubscriptionRef is set;
	// the service resolves the reference to the local subscription.
	SubscriptionID          snowflake.ID
	ProviderSubscriptionRef string
	ProviderInvoiceID       string
	AmountCents             int64
	FailureReason           string
}

// CycleInfo is the single-subscription billing-cycle lookup result.
type CycleInfo struct {
	SubscriptionID     snowflake.ID              `json:"subscription_id"`
	Status             subscriptiondomain.Status `json:"status"`
	Amount             decimal.Decimal           `json:"amount"`
	CurrentPeriodStart time.Time                 `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                 `json:"current_period_end"`
	NextBillingAt      time.Time                 `json:"next_billing_at"`
}
