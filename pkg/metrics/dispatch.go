package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery result labels recorded per push attempt.
const (
	ResultSuccess   = "success"
	ResultTransient = "transient"
	ResultGone      = "gone"
)

// DispatchMetrics records per-attempt delivery outcomes and fan-out shape.
type DispatchMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	targets  prometheus.Histogram
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_delivery_attempts_total",
		Help: "Push delivery attempts by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "push_delivery_duration_seconds",
		Help:    "Duration of individual push delivery attempts.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	targets := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "push_dispatch_targets",
		Help:    "Active subscriptions targeted per dispatch.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})
	reg.MustRegister(attempts, duration, targets)
	return &DispatchMetrics{
		attempts: attempts,
		duration: duration,
		targets:  targets,
	}
}

// ObserveAttempt records one delivery attempt with its result label.
func (d *DispatchMetrics) ObserveAttempt(result string, duration time.Duration) {
	if d == nil || d.attempts == nil {
		return
	}
	d.attempts.WithLabelValues(result).Inc()
	d.duration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveTargets records how many subscriptions a dispatch fanned out to.
func (d *DispatchMetrics) ObserveTargets(count int) {
	if d == nil || d.targets == nil {
		return
	}
	d.targets.Observe(float64(count))
}
