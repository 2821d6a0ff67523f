// Package metrics exposes the reconciler and ledger instruments on the
// default Prometheus registry, served at /metrics by the HTTP server.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ReconcilerMetrics struct {
	jobRuns           *prometheus.CounterVec
	jobErrors         *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	deliveriesCreated prometheus.Counter
	pricesRepaired    prometheus.Counter
	statusFlips       *prometheus.CounterVec
}

var (
	reconcilerOnce sync.Once
	reconciler     *ReconcilerMetrics
)

// Reconciler returns the process-wide reconciler instruments.
func Reconciler() *ReconcilerMetrics {
	reconcilerOnce.Do(func() {
		reconciler = &ReconcilerMetrics{
			jobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "milkrun",
				Subsystem: "reconciler",
				Name:      "job_runs_total",
				Help:      "Reconciler job invocations.",
			}, []string{"job"}),
			jobErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "milkrun",
				Subsystem: "reconciler",
				Name:      "job_errors_total",
				Help:      "Reconciler job failures.",
			}, []string{"job"}),
			jobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "milkrun",
				Subsystem: "reconciler",
				Name:      "job_duration_seconds",
				Help:      "Reconciler job wall time.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"job"}),
			deliveriesCreated: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "milkrun",
				Subsystem: "reconciler",
				Name:      "deliveries_created_total",
				Help:      "Delivery rows created by ensure passes.",
			}),
			pricesRepaired: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "milkrun",
				Subsystem: "reconciler",
				Name:      "prices_repaired_total",
				Help:      "Non-terminal delivery rows whose charge was corrected.",
			}),
			statusFlips: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "milkrun",
				Subsystem: "reconciler",
				Name:      "customer_status_flips_total",
				Help:      "Balance-driven customer status transitions.",
			}, []string{"to"}),
		}
	})
	return reconciler
}

func (m *ReconcilerMetrics) IncJobRun(job string)   { m.jobRuns.WithLabelValues(job).Inc() }
func (m *ReconcilerMetrics) IncJobError(job string) { m.jobErrors.WithLabelValues(job).Inc() }

func (m *ReconcilerMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *ReconcilerMetrics) AddDeliveriesCreated(n int) {
	if n > 0 {
		m.deliveriesCreated.Add(float64(n))
	}
}

func (m *ReconcilerMetrics) AddPricesRepaired(n int) {
	if n > 0 {
		m.pricesRepaired.Add(float64(n))
	}
}

func (m *ReconcilerMetrics) IncStatusFlip(to string) { m.statusFlips.WithLabelValues(to).Inc() }
