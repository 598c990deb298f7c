package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records delivery lifecycle counters.
type DispatchMetrics struct {
	assigned  *prometheus.CounterVec
	rejected  prometheus.Counter
	completed *prometheus.CounterVec
	runTime   prometheus.Histogram
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	assigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_assigned_total",
		Help: "Deliveries assigned, labelled by fulfillment mode.",
	}, []string{"mode"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deliveries_rejected_total",
		Help: "Courier rejections returning deliveries to the pool.",
	})
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_completed_total",
		Help: "Completed deliveries, labelled by payment method.",
	}, []string{"payment_method"})
	runTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_run_duration_seconds",
		Help:    "Time from assignment to completion.",
		Buckets: prometheus.ExponentialBuckets(60, 2, 10),
	})
	reg.MustRegister(assigned, rejected, completed, runTime)
	return &DispatchMetrics{
		assigned:  assigned,
		rejected:  rejected,
		completed: completed,
		runTime:   runTime,
	}
}

// IncAssigned increments the assignment counter for the given mode
// ("courier" or "operator").
func (d *DispatchMetrics) IncAssigned(mode string) {
	if d == nil || d.assigned == nil {
		return
	}
	d.assigned.WithLabelValues(normalizeLabel(mode)).Inc()
}

// IncRejected increments the rejection counter.
func (d *DispatchMetrics) IncRejected() {
	if d == nil || d.rejected == nil {
		return
	}
	d.rejected.Inc()
}

// IncCompleted increments the completion counter for the payment method.
func (d *DispatchMetrics) IncCompleted(paymentMethod string) {
	if d == nil || d.completed == nil {
		return
	}
	d.completed.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// ObserveRunDuration records the assignment-to-completion duration.
func (d *DispatchMetrics) ObserveRunDuration(duration time.Duration) {
	if d == nil || d.runTime == nil {
		return
	}
	d.runTime.Observe(duration.Seconds())
}
