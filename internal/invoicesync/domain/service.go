// Package domain defines the invoice synchronization contract.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
)

// Result aggregates one sync run's outcome.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// Add folds another result into this one.
func (r *Result) Add(other Result) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Total += other.Total
}

// Service mirrors the processor's invoice history into the local ledger.
type Service interface {
	// SyncSubscription pages through the processor's full invoice
	// history for one subscription, upserting local rows. A missing
	// subscription is a hard error; per-invoice failures are logged and
	// skipped.
	SyncSubscription(ctx context.Context, subscriptionID snowflake.ID) (Result, error)
	// SyncArtist syncs every subscription of an artist independently.
	// One subscription's failure does not block the others, and the
	// aggregate counts reflect only subscriptions that synced cleanly.
	SyncArtist(ctx context.Context, artistID snowflake.ID) (Result, error)
	// Invoices lists the synced ledger rows for one subscription. A
	// missing subscription is a hard error.
	Invoices(ctx context.Context, subscriptionID snowflake.ID) ([]invoicedomain.Invoice, error)
}
