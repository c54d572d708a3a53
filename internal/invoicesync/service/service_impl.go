package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shockvaluemedia/directfanz/internal/config"
	gatewaydomain "github.com/shockvaluemedia/directfanz/internal/gateway/domain"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	invoicesyncdomain "github.com/shockvaluemedia/directfanz/internal/invoicesync/domain"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	pkgdb "github.com/shockvaluemedia/directfanz/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Billing *config.BillingConfigHolder

	Gateway   gatewaydomain.Gateway
	Generator gatewaydomain.InvoiceDataGenerator

	SubscriptionRepo subscriptiondomain.Repository
	InvoiceRepo      invoicedomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cfg   *config.BillingConfigHolder

	gateway   gatewaydomain.Gateway
	generator gatewaydomain.InvoiceDataGenerator

	subscriptionrepo subscriptiondomain.Repository
	invoicerepo      invoicedomain.Repository
}

func NewService(p ServiceParam) (invoicesyncdomain.Service, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Billing == nil ||
		p.Gateway == nil || p.Generator == nil ||
		p.SubscriptionRepo == nil || p.InvoiceRepo == nil {
		return nil, gatewaydomain.ErrInvalidConfig
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoicesync.service"),
		genID: p.GenID,
		cfg:   p.Billing,

		gateway:   p.Gateway,
		generator: p.Generator,

		subscriptionrepo: p.SubscriptionRepo,
		invoicerepo:      p.InvoiceRepo,
	}, nil
}

func (s *Service) SyncSubscription(ctx context.Context, subscriptionID snowflake.ID) (invoicesyncdomain.Result, error) {
	var result invoicesyncdomain.Result

	subscription, err := s.subscriptionrepo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return result, err
	}
	if subscription == nil {
		return result, subscriptiondomain.ErrSubscriptionNotFound
	}

	pageSize := s.cfg.Get().InvoicePageSize
	cursor := ""
	for {
		page, err := s.gateway.ListInvoices(ctx, subscription.ProviderSubscriptionID, pageSize, cursor)
		if err != nil {
			return result, fmt.Errorf("list gateway invoices: %w", err)
		}

		for _, providerInvoiceID := range page.InvoiceIDs {
			created, err := s.syncOne(ctx, subscription.ID, providerInvoiceID)
			if err != nil {
				s.log.Error("invoice sync failed",
					zap.String("subscription_id", subscription.ID.String()),
					zap.String("provider_invoice_id", providerInvoiceID),
					zap.Error(err),
				)
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
			result.Total++
		}

		if !page.HasMore {
			break
		}
		cursor = page.LastID
	}
	return result, nil
}

func (s *Service) SyncArtist(ctx context.Context, artistID snowflake.ID) (invoicesyncdomain.Result, error) {
	var result invoicesyncdomain.Result

	subscriptions, err := s.subscriptionrepo.ByArtist(ctx, s.db, artistID)
	if err != nil {
		return result, fmt.Errorf("list artist subscriptions: %w", err)
	}

	for _, subscription := range subscriptions {
		sub, err := s.SyncSubscription(ctx, subscription.ID)
		if err != nil {
			s.log.Error("subscription sync failed",
				zap.String("subscription_id", subscription.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Add(sub)
	}
	return result, nil
}

func (s *Service) Invoices(ctx context.Context, subscriptionID snowflake.ID) ([]invoicedomain.Invoice, error) {
	subscription, err := s.subscriptionrepo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return s.invoicerepo.FindBySubscription(ctx, s.db, subscriptionID)
}

// syncOne upserts one provider invoice into the ledger. It reports
// whether a new row was created.
func (s *Service) syncOne(ctx context.Context, subscriptionID snowflake.ID, providerInvoiceID string) (bool, error) {
	data, err := s.generator.Generate(ctx, providerInvoiceID)
	if err != nil {
		return false, fmt.Errorf("generate invoice data: %w", err)
	}

	existing, err := s.invoicerepo.FindByProviderRef(ctx, s.db, providerInvoiceID)
	if err != nil {
		return false, err
	}

	proration := prorationCents(data.Lines)
	lines := make([]invoicedomain.Line, 0, len(data.Lines))
	for _, line := range data.Lines {
		periodStart, periodEnd := line.PeriodStart, line.PeriodEnd
		lines = append(lines, invoicedomain.Line{
			Description: line.Description,
			AmountCents: line.AmountCents,
			Quantity:    line.Quantity,
			PeriodStart: &periodStart,
			PeriodEnd:   &periodEnd,
		})
	}

	if existing != nil {
		if err := applySync(existing, data, lines, proration); err != nil {
			return false, err
		}
		return false, s.invoicerepo.Update(ctx, s.db, existing)
	}

	invoice := &invoicedomain.Invoice{
		ID:                s.genID.Generate(),
		SubscriptionID:    subscriptionID,
		ProviderInvoiceID: providerInvoiceID,
		AmountCents:       data.AmountCents,
		Status:            data.Status,
		DueAt:             data.DueAt,
		PaidAt:            data.PaidAt,
		PeriodStart:       data.PeriodStart,
		PeriodEnd:         data.PeriodEnd,
		ProrationCents:    &proration,
	}
	if err := invoice.EncodeItems(invoicedomain.ItemsPayload{Lines: lines}); err != nil {
		return false, err
	}
	if err := s.invoicerepo.Insert(ctx, s.db, invoice); err != nil {
		if !pkgdb.IsDuplicateKeyErr(err) {
			return false, err
		}
		// Lost an insert race against a concurrent sync of the same
		// invoice. The unique provider reference guarantees a winner row
		// exists; refresh it instead.
		winner, findErr := s.invoicerepo.FindByProviderRef(ctx, s.db, providerInvoiceID)
		if findErr != nil {
			return false, findErr
		}
		if winner == nil {
			return false, err
		}
		if err := applySync(winner, data, lines, proration); err != nil {
			return false, err
		}
		return false, s.invoicerepo.Update(ctx, s.db, winner)
	}
	return true, nil
}

// applySync copies the gateway's mutable invoice fields onto a local row.
func applySync(existing *invoicedomain.Invoice, data *gatewaydomain.InvoiceData, lines []invoicedomain.Line, proration int64) error {
	existing.AmountCents = data.AmountCents
	existing.Status = data.Status
	existing.DueAt = data.DueAt
	existing.PaidAt = data.PaidAt
	existing.PeriodStart = data.PeriodStart
	existing.PeriodEnd = data.PeriodEnd
	return mergeLines(existing, lines, proration)
}

// mergeLines refreshes the synced lines and proration while preserving
// any scheduledTierChange the payload already carries.
func mergeLines(invoice *invoicedomain.Invoice, lines []invoicedomain.Line, proration int64) error {
	payload, err := invoice.DecodeItems()
	if err != nil {
		return err
	}
	payload.Lines = lines
	invoice.ProrationCents = &proration
	return invoice.EncodeItems(payload)
}

func prorationCents(lines []gatewaydomain.InvoiceLine) int64 {
	var total int64
	for _, line := range lines {
		if line.Proration || strings.Contains(strings.ToLower(line.Description), "proration") {
			total += line.AmountCents
		}
	}
	return total
}
