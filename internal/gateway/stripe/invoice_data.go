package stripe

import (
	"context"
	"strings"
	"time"

	gatewaydomain "github.com/shockvaluemedia/directfanz/internal/gateway/domain"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// InvoiceDataGenerator normalizes Stripe invoices for the sync layer.
type InvoiceDataGenerator struct {
	client *client.API
}

var _ gatewaydomain.InvoiceDataGenerator = (*InvoiceDataGenerator)(nil)

func NewInvoiceDataGenerator(g *Gateway) *InvoiceDataGenerator {
	return &InvoiceDataGenerator{client: g.client}
}

func (g *InvoiceDataGenerator) Generate(ctx context.Context, providerInvoiceID string) (*gatewaydomain.InvoiceData, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	params.AddExpand("lines")

	inv, err := g.client.Invoices.Get(providerInvoiceID, params)
	if err != nil {
		return nil, classify(err)
	}

	data := &gatewaydomain.InvoiceData{
		AmountCents: inv.AmountDue,
		Status:      strings.ToUpper(string(inv.Status)),
		DueAt:       unixPtr(inv.DueDate),
		PeriodStart: time.Unix(inv.PeriodStart, 0).UTC(),
		PeriodEnd:   time.Unix(inv.PeriodEnd, 0).UTC(),
	}
	data.PaidAt = unixPtr(inv.StatusTransitions.PaidAt)
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			normalized := gatewaydomain.InvoiceLine{
				Description: line.Description,
				AmountCents: line.Amount,
				Quantity:    line.Quantity,
				Proration:   line.Proration,
			}
			if line.Period != nil {
				normalized.PeriodStart = time.Unix(line.Period.Start, 0).UTC()
				normalized.PeriodEnd = time.Unix(line.Period.End, 0).UTC()
			}
			data.Lines = append(data.Lines, normalized)
		}
	}
	return data, nil
}
