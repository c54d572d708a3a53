// Package metrics exposes prometheus instruments for the reconciliation
// sweeps and the HTTP surface.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics captures reconciliation sweep health signals.
type SweepMetrics struct {
	sweepRuns     *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	sweepErrors   *prometheus.CounterVec
	sweepEvents   *prometheus.CounterVec
	sweepSkipped  *prometheus.CounterVec
	lockContended *prometheus.CounterVec
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

// Sweep returns the singleton sweep metrics registry.
func Sweep() *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer)
	})
	return sweepMetrics
}

// ResetSweepMetricsForTest resets the sweep metrics singleton for tests.
func ResetSweepMetricsForTest() {
	sweepMetricsOnce = sync.Once{}
	sweepMetrics = nil
}

func newSweepMetrics(registerer prometheus.Registerer) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &SweepMetrics{
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directfanz_sweep_runs_total",
			Help: "Reconciliation sweep invocations by sweep name.",
		}, []string{"sweep"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "directfanz_sweep_duration_seconds",
			Help:    "Reconciliation sweep wall time by sweep name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
		sweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directfanz_sweep_errors_total",
			Help: "Sweep-level failures by sweep name.",
		}, []string{"sweep"}),
		sweepEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directfanz_sweep_events_total",
			Help: "Reconciliation events emitted by sweep and event type.",
		}, []string{"sweep", "type"}),
		sweepSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directfanz_sweep_skipped_total",
			Help: "Sweeps skipped because another instance held the lock.",
		}, []string{"sweep"}),
		lockContended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directfanz_sweep_lock_errors_total",
			Help: "Sweep lock acquisition errors by sweep name.",
		}, []string{"sweep"}),
	}

	for _, collector := range []prometheus.Collector{
		m.sweepRuns, m.sweepDuration, m.sweepErrors, m.sweepEvents, m.sweepSkipped, m.lockContended,
	} {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
	return m
}

func (m *SweepMetrics) IncRun(sweep string) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(sweep).Inc()
}

func (m *SweepMetrics) ObserveDuration(sweep string, d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

func (m *SweepMetrics) IncError(sweep string) {
	if m == nil {
		return
	}
	m.sweepErrors.WithLabelValues(sweep).Inc()
}

func (m *SweepMetrics) AddEvents(sweep, eventType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepEvents.WithLabelValues(sweep, eventType).Add(float64(n))
}

func (m *SweepMetrics) IncSkipped(sweep string) {
	if m == nil {
		return
	}
	m.sweepSkipped.WithLabelValues(sweep).Inc()
}

func (m *SweepMetrics) IncLockError(sweep string) {
	if m == nil {
		return
	}
	m.lockContended.WithLabelValues(sweep).Inc()
}
