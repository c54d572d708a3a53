// Package domain defines the payment-processor boundary consumed by the
// reconciliation core. All amounts cross this boundary in minor currency
// units; the core converts to decimal at its own edges.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("gateway_object_not_found")
	ErrUnavailable   = errors.New("gateway_unavailable")
	ErrInvalidConfig = errors.New("gateway_invalid_config")
)

// SubscriptionState is the processor's authoritative view of a
// subscription. On conflict with local state, these values win.
type SubscriptionState struct {
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// UpcomingLine is one line of a not-yet-finalized invoice.
type UpcomingLine struct {
	Description string
	AmountCents int64
	Proration   bool
}

// UpcomingInvoice is the processor's preview of the next charge.
type UpcomingInvoice struct {
	AmountDueCents int64
	DueAt          *time.Time
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Lines          []UpcomingLine
}

// InvoiceState carries the retry-relevant fields of a finalized invoice.
type InvoiceState struct {
	Status             string
	Paid               bool
	AttemptCount       int64
	NextPaymentAttempt *time.Time
}

// InvoicePage is one page of a subscription's invoice history.
type InvoicePage struct {
	InvoiceIDs []string
	HasMore    bool
	LastID     string
}

// Gateway abstracts the remote payment processor. Implementations must
// bound each call with the context deadline; a timed-out call surfaces
// as an error the sweeps treat as a per-record failure.
type Gateway interface {
	RetrieveSubscription(ctx context.Context, providerRef string) (*SubscriptionState, error)
	RetrieveUpcomingInvoice(ctx context.Context, providerSubscriptionRef string) (*UpcomingInvoice, error)
	RetrieveInvoice(ctx context.Context, providerInvoiceID string) (*InvoiceState, error)
	CancelSubscription(ctx context.Context, providerRef string) error
	ListInvoices(ctx context.Context, providerSubscriptionRef string, pageSize int, cursor string) (*InvoicePage, error)
}

// InvoiceLine is a normalized invoice line produced by the data generator.
type InvoiceLine struct {
	Description string
	AmountCents int64
	Quantity    int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	Proration   bool
}

// InvoiceData is the normalized invoice shape consumed by invoice sync.
type InvoiceData struct {
	AmountCents int64
	Status      string
	DueAt       *time.Time
	PaidAt      *time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Lines       []InvoiceLine
}

// InvoiceDataGenerator derives normalized invoice data from the
// processor's invoice object.
type InvoiceDataGenerator interface {
	Generate(ctx context.Context, providerInvoiceID string) (*InvoiceData, error)
}
