package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	summarydomain "github.com/shockvaluemedia/directfanz/internal/billingsummary/domain"
	"github.com/shockvaluemedia/directfanz/internal/config"
	invoicedomain "github.com/shockvaluemedia/directfanz/internal/invoice/domain"
	invoicesyncdomain "github.com/shockvaluemedia/directfanz/internal/invoicesync/domain"
	subscriptiondomain "github.com/shockvaluemedia/directfanz/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubBillingService struct {
	recorded    *billingcycledomain.RecordPaymentFailureRequest
	cycleErr    error
	recordedErr error
}

func (s *stubBillingService) ProcessRenewals(context.Context) ([]billingcycledomain.Event, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBillingService) UpcomingInvoices(context.Context, billingcycledomain.PreviewRequest) ([]billingcycledomain.UpcomingInvoicePreview, error) {
	return []billingcycledomain.UpcomingInvoicePreview{}, nil
}

func (s *stubBillingService) SendRenewalReminders(context.Context) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *stubBillingService) RetryFailedPayments(context.Context) ([]billingcycledomain.Event, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBillingService) ApplyScheduledTierChanges(context.Context) ([]billingcycledomain.Event, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBillingService) RecordPaymentFailure(_ context.Context, req billingcycledomain.RecordPaymentFailureRequest) (*billingcycledomain.Event, error) {
	s.recorded = &req
	if s.recordedErr != nil {
		return nil, s.recordedErr
	}
	return &billingcycledomain.Event{Type: billingcycledomain.EventTypeFailure, SubscriptionID: req.SubscriptionID}, nil
}

func (s *stubBillingService) CycleInfo(_ context.Context, id snowflake.ID) (*billingcycledomain.CycleInfo, error) {
	if s.cycleErr != nil {
		return nil, s.cycleErr
	}
	return &billingcycledomain.CycleInfo{SubscriptionID: id}, nil
}

type stubSummaryService struct{}

func (s *stubSummaryService) Summary(_ context.Context, artistID snowflake.ID) (*summarydomain.Summary, error) {
	return &summarydomain.Summary{ArtistID: artistID}, nil
}

type stubSyncService struct{}

func (s *stubSyncService) SyncSubscription(context.Context, snowflake.ID) (invoicesyncdomain.Result, error) {
	return invoicesyncdomain.Result{Created: 1, Total: 1}, nil
}

func (s *stubSyncService) SyncArtist(context.Context, snowflake.ID) (invoicesyncdomain.Result, error) {
	return invoicesyncdomain.Result{}, nil
}

func (s *stubSyncService) Invoices(_ context.Context, subscriptionID snowflake.ID) ([]invoicedomain.Invoice, error) {
	return []invoicedomain.Invoice{{ID: 1, SubscriptionID: subscriptionID, ProviderInvoiceID: "in_1"}}, nil
}

func newTestServer(t *testing.T, billing *stubBillingService) *Server {
	t.Helper()
	engine := NewEngine(zaptest.NewLogger(t))
	return NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{},
		BillingSvc: billing,
		SummarySvc: &stubSummaryService{},
		SyncSvc:    &stubSyncService{},
	})
}

func TestRecordPaymentFailureWebhook(t *testing.T) {
	billing := &stubBillingService{}
	srv := newTestServer(t, billing)

	body := `{"subscription_id":"12345","invoice_id":"in_123","amount_cents":999,"failure_reason":"card_declined"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-failure", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, billing.recorded)
	assert.Equal(t, snowflake.ID(12345), billing.recorded.SubscriptionID)
	assert.Equal(t, "in_123", billing.recorded.ProviderInvoiceID)
	assert.Equal(t, int64(999), billing.recorded.AmountCents)
}

func TestRecordPaymentFailureWebhookAcceptsProviderRef(t *testing.T) {
	billing := &stubBillingService{}
	srv := newTestServer(t, billing)

	body := `{"provider_subscription_id":"sub_abc","invoice_id":"in_123","amount_cents":999}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-failure", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, billing.recorded)
	assert.Equal(t, snowflake.ID(0), billing.recorded.SubscriptionID)
	assert.Equal(t, "sub_abc", billing.recorded.ProviderSubscriptionRef)
	assert.Equal(t, "in_123", billing.recorded.ProviderInvoiceID)
}

func TestRecordPaymentFailureWebhookRejectsMissingSubscription(t *testing.T) {
	billing := &stubBillingService{}
	srv := newTestServer(t, billing)

	body := `{"invoice_id":"in_123"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-failure", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, billing.recorded)
}

func TestRecordPaymentFailureWebhookRejectsMissingInvoice(t *testing.T) {
	billing := &stubBillingService{}
	srv := newTestServer(t, billing)

	body := `{"subscription_id":"12345"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-failure", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, billing.recorded)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp.Error.Type)
}

func TestBillingCycleInfoMapsNotFound(t *testing.T) {
	billing := &stubBillingService{cycleErr: subscriptiondomain.ErrSubscriptionNotFound}
	srv := newTestServer(t, billing)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/12345/billing-cycle", nil)
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Type)
}

func TestBillingCycleInfoRejectsBadID(t *testing.T) {
	srv := newTestServer(t, &stubBillingService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/abc/billing-cycle", nil)
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtistSummaryRoute(t *testing.T) {
	srv := newTestServer(t, &stubBillingService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artists/777/billing/summary", nil)
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary summarydomain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, snowflake.ID(777), summary.ArtistID)
}

func TestListSubscriptionInvoicesRoute(t *testing.T) {
	srv := newTestServer(t, &stubBillingService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/555/invoices", nil)
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Invoices []invoicedomain.Invoice `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Invoices, 1)
	assert.Equal(t, snowflake.ID(555), resp.Invoices[0].SubscriptionID)
}

func TestSyncSubscriptionRoute(t *testing.T) {
	srv := newTestServer(t, &stubBillingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/555/invoices/sync", nil)
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result invoicesyncdomain.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Created)
}
