// Package stripe adapts the Stripe API to the gateway boundary.
package stripe

import (
	"context"
	"errors"
	"net/http"
	"time"

	gatewaydomain "github.com/shockvaluemedia/directfanz/internal/gateway/domain"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

type Gateway struct {
	client *client.API
}

var _ gatewaydomain.Gateway = (*Gateway)(nil)

func New(apiKey string) (*Gateway, error) {
	if apiKey == "" {
		return nil, gatewaydomain.ErrInvalidConfig
	}
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Gateway{client: api}, nil
}

// NewWithClient wires a preconfigured API client, used by tests and by
// callers that need a custom backend.
func NewWithClient(api *client.API) *Gateway {
	return &Gateway{client: api}
}

func (g *Gateway) RetrieveSubscription(ctx context.Context, providerRef string) (*gatewaydomain.SubscriptionState, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.client.Subscriptions.Get(providerRef, params)
	if err != nil {
		return nil, classify(err)
	}

	return &gatewaydomain.SubscriptionState{
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}, nil
}

func (g *Gateway) RetrieveUpcomingInvoice(ctx context.Context, providerSubscriptionRef string) (*gatewaydomain.UpcomingInvoice, error) {
	params := &stripe.InvoiceParams{
		Subscription: stripe.String(providerSubscriptionRef),
	}
	params.Context = ctx

	inv, err := g.client.Invoices.GetNext(params)
	if err != nil {
		return nil, classify(err)
	}

	upcoming := &gatewaydomain.UpcomingInvoice{
		AmountDueCents: inv.AmountDue,
		DueAt:          unixPtr(inv.DueDate),
		PeriodStart:    time.Unix(inv.PeriodStart, 0).UTC(),
		PeriodEnd:      time.Unix(inv.PeriodEnd, 0).UTC(),
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			upcoming.Lines = append(upcoming.Lines, gatewaydomain.UpcomingLine{
				Description: line.Description,
				AmountCents: line.Amount,
				Proration:   line.Proration,
			})
		}
	}
	return upcoming, nil
}

func (g *Gateway) RetrieveInvoice(ctx context.Context, providerInvoiceID string) (*gatewaydomain.InvoiceState, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx

	inv, err := g.client.Invoices.Get(providerInvoiceID, params)
	if err != nil {
		return nil, classify(err)
	}

	return &gatewaydomain.InvoiceState{
		Status:             string(inv.Status),
		Paid:               inv.Paid,
		AttemptCount:       inv.AttemptCount,
		NextPaymentAttempt: unixPtr(inv.NextPaymentAttempt),
	}, nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, providerRef string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := g.client.Subscriptions.Cancel(providerRef, params); err != nil {
		return classify(err)
	}
	return nil
}

func (g *Gateway) ListInvoices(ctx context.Context, providerSubscriptionRef string, pageSize int, cursor string) (*gatewaydomain.InvoicePage, error) {
	params := &stripe.InvoiceListParams{
		Subscription: stripe.String(providerSubscriptionRef),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(pageSize))
	params.Single = true
	if cursor != "" {
		params.StartingAfter = stripe.String(cursor)
	}

	iter := g.client.Invoices.List(params)

	page := &gatewaydomain.InvoicePage{}
	for iter.Next() {
		inv := iter.Invoice()
		page.InvoiceIDs = append(page.InvoiceIDs, inv.ID)
		page.LastID = inv.ID
	}
	if err := iter.Err(); err != nil {
		return nil, classify(err)
	}
	if meta := iter.Meta(); meta != nil {
		page.HasMore = meta.HasMore
	}
	return page, nil
}

func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound ||
			stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return gatewaydomain.ErrNotFound
		}
	}
	return err
}

func unixPtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
