package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch results used as the "result" label.
const (
	resultSent      = "sent"
	resultFailed    = "failed"
	resultSkipped   = "skipped"
	resultDuplicate = "duplicate"
)

// Metrics instruments reconciliation runs. A nil *Metrics records nothing.
type Metrics struct {
	dispatches  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contentplan",
				Subsystem: "reconcile",
				Name:      "dispatch_total",
				Help:      "Notification dispatches by transition and result",
			},
			[]string{"transition", "result"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contentplan",
				Subsystem: "reconcile",
				Name:      "runs_total",
				Help:      "Reconciliation runs by result",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "contentplan",
				Subsystem: "reconcile",
				Name:      "run_duration_seconds",
				Help:      "Wall time of reconciliation runs",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.dispatches, m.runs, m.runDuration)
	}
	return m
}

func (m *Metrics) dispatch(transition, result string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(transition, result).Inc()
}

func (m *Metrics) run(r Report, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case r.Cancelled:
		result = "cancelled"
	case r.Failures() > 0:
		result = "partial"
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(r.Duration.Seconds())
}
