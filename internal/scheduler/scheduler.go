// Package scheduler drives the recurring-billing reconciliation sweeps
// on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	"github.com/shockvaluemedia/directfanz/internal/clock"
	"github.com/shockvaluemedia/directfanz/internal/locker"
	obsmetrics "github.com/shockvaluemedia/directfanz/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

const (
	JobRenewals    = "renewals"
	JobReminders   = "reminders"
	JobRetries     = "retries"
	JobTierChanges = "tier_changes"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	BillingSvc billingcycledomain.Service
	Locker     *locker.Locker `optional:"true"`
	Config     Config         `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	billingSvc billingcycledomain.Service
	locker     *locker.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.BillingSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		billingSvc: p.BillingSvc,
		locker:     p.Locker,
	}, nil
}

// runJob executes one sweep under the distributed lock with a bounded
// timeout. A deadline overrun is recorded but treated as a soft failure
// so the remaining sweeps still run.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	fn func(ctx context.Context) ([]billingcycledomain.Event, error),
) error {
	sweepMetrics := obsmetrics.Sweep()

	token, ok, err := s.locker.TrySweep(parent, name, s.cfg.LockTTL)
	if err != nil {
		sweepMetrics.IncLockError(name)
		return err
	}
	if !ok {
		sweepMetrics.IncSkipped(name)
		s.log.Info("sweep already running elsewhere", zap.String("job", name))
		return nil
	}
	defer func() {
		if err := s.locker.ReleaseSweep(parent, name, token); err != nil {
			s.log.Warn("sweep lock release failed", zap.String("job", name), zap.Error(err))
		}
	}()

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	sweepMetrics.IncRun(name)
	events, err := fn(ctx)
	sweepMetrics.ObserveDuration(name, time.Since(start))

	byType := map[billingcycledomain.EventType]int{}
	for _, event := range events {
		byType[event.Type]++
	}
	for eventType, n := range byType {
		sweepMetrics.AddEvents(name, string(eventType), n)
	}

	log := s.log.With(zap.String("job", name), zap.Int("events", len(events)))
	if err == nil {
		log.Info("sweep finished")
		return nil
	}

	sweepMetrics.IncError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("sweep timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	log.Error("sweep failed", zap.Error(err))
	return err
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	jobs := []struct {
		Name string
		Run  func(context.Context) ([]billingcycledomain.Event, error)
	}{
		{JobRenewals, s.billingSvc.ProcessRenewals},
		{JobReminders, func(ctx context.Context) ([]billingcycledomain.Event, error) {
			sent, err := s.billingSvc.SendRenewalReminders(ctx)
			if err != nil {
				return nil, err
			}
			s.log.Info("reminders sent", zap.Int("count", sent))
			return nil, nil
		}},
		{JobRetries, s.billingSvc.RetryFailedPayments},
		{JobTierChanges, s.billingSvc.ApplyScheduledTierChanges},
	}

	var err error
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty EnabledJobs list enables everything.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
