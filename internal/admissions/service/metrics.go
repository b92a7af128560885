package service

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the finalization pipeline. A nil
// *Metrics records nothing.
type Metrics struct {
	TicketsTotal          *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec
	KeySlotRotationsTotal prometheus.Counter
	FinalizeRunsTotal     *prometheus.CounterVec
	FinalizeDuration      prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with the default registry once.
//
// Metrics:
//   - admissions_tickets_total{outcome} - created, reused, recreated, failed
//   - admissions_notifications_total{category,outcome} - sent, skipped, failed
//   - admissions_key_slot_rotations_total - credential slot rotations
//   - admissions_finalize_runs_total{result} - succeeded, partial, rejected
//   - admissions_finalize_duration_seconds - finalization run duration
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TicketsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "admissions_tickets_total",
					Help: "Ticket invitation attempts by outcome",
				},
				[]string{"outcome"},
			),
			NotificationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "admissions_notifications_total",
					Help: "Decision notifications by category and outcome",
				},
				[]string{"category", "outcome"},
			),
			KeySlotRotationsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "admissions_key_slot_rotations_total",
					Help: "Notification credential slot rotations",
				},
			),
			FinalizeRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "admissions_finalize_runs_total",
					Help: "Finalization runs by result",
				},
				[]string{"result"},
			),
			FinalizeDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "admissions_finalize_duration_seconds",
					Help:    "Duration of finalization runs in seconds",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) ticket(outcome string) {
	if m == nil {
		return
	}
	m.TicketsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) notification(category, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) rotations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.KeySlotRotationsTotal.Add(float64(n))
}

func (m *Metrics) finalizeRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.FinalizeRunsTotal.WithLabelValues(result).Inc()
	m.FinalizeDuration.Observe(d.Seconds())
}
