package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	obsmetrics "github.com/shockvaluemedia/directfanz/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBillingService struct {
	renewalsErr    error
	retriesErr     error
	tierChangesErr error
	remindersErr   error

	calls []string
}

func (s *fakeBillingService) ProcessRenewals(context.Context) ([]billingcycledomain.Event, error) {
	s.calls = append(s.calls, JobRenewals)
	return []billingcycledomain.Event{{Type: billingcycledomain.EventTypeRenewal}}, s.renewalsErr
}

func (s *fakeBillingService) SendRenewalReminders(context.Context) (int, error) {
	s.calls = append(s.calls, JobReminders)
	return 1, s.remindersErr
}

func (s *fakeBillingService) RetryFailedPayments(context.Context) ([]billingcycledomain.Event, error) {
	s.calls = append(s.calls, JobRetries)
	return nil, s.retriesErr
}

func (s *fakeBillingService) ApplyScheduledTierChanges(context.Context) ([]billingcycledomain.Event, error) {
	s.calls = append(s.calls, JobTierChanges)
	return nil, s.tierChangesErr
}

func (s *fakeBillingService) UpcomingInvoices(context.Context, billingcycledomain.PreviewRequest) ([]billingcycledomain.UpcomingInvoicePreview, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeBillingService) RecordPaymentFailure(context.Context, billingcycledomain.RecordPaymentFailureRequest) (*billingcycledomain.Event, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeBillingService) CycleInfo(context.Context, snowflake.ID) (*billingcycledomain.CycleInfo, error) {
	return nil, errors.New("not implemented")
}

func newTestScheduler(t *testing.T, svc *fakeBillingService, cfg Config) *Scheduler {
	t.Helper()
	obsmetrics.ResetSweepMetricsForTest()

	s, err := New(Params{
		Log:        zaptest.NewLogger(t),
		Clock:      clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)),
		BillingSvc: svc,
		Config:     cfg,
	})
	require.NoError(t, err)
	return s
}

func TestRunOnceExecutesAllSweeps(t *testing.T) {
	svc := &fakeBillingService{}
	s := newTestScheduler(t, svc, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{JobRenewals, JobReminders, JobRetries, JobTierChanges}, svc.calls)
}

func TestRunOnceHonorsEnabledJobs(t *testing.T) {
	svc := &fakeBillingService{}
	s := newTestScheduler(t, svc, Config{EnabledJobs: []string{JobRetries}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{JobRetries}, svc.calls)
}

func TestRunOnceContinuesPastFailingSweep(t *testing.T) {
	sweepErr := errors.New("gateway unreachable")
	svc := &fakeBillingService{renewalsErr: sweepErr}
	s := newTestScheduler(t, svc, Config{})

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, sweepErr)

	// The remaining sweeps still ran despite the first one failing.
	assert.Equal(t, []string{JobRenewals, JobReminders, JobRetries, JobTierChanges}, svc.calls)
}

func TestRunOnceTreatsTimeoutAsSoftFailure(t *testing.T) {
	svc := &fakeBillingService{retriesErr: context.DeadlineExceeded}
	s := newTestScheduler(t, svc, Config{})

	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
