// Package metrics provides Prometheus metrics for the regeneration service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the regeneration pipeline.
//
// Collectors are registered against an explicit Registerer so tests can
// build isolated instances instead of sharing the default registry.
type Metrics struct {
	RegenerationsTotal *prometheus.CounterVec // labels: trigger, outcome
	RegenerationSecs   prometheus.Histogram
	RollbacksTotal     *prometheus.CounterVec // labels: outcome
	DetectionsTotal    *prometheus.CounterVec // labels: outcome
	BumpsTotal         *prometheus.CounterVec // labels: kind
	QueueDepth         prometheus.Gauge
	QueueDropsTotal    prometheus.Counter
	CooldownSkipsTotal prometheus.Counter
	NotificationsTotal prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RegenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_regenerations_total",
				Help: "Total regeneration attempts by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		RegenerationSecs: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "loom_regeneration_duration_seconds",
				Help:    "Duration of regeneration attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RollbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_rollbacks_total",
				Help: "Total rollback attempts by outcome",
			},
			[]string{"outcome"},
		),
		DetectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_detections_total",
				Help: "Total change detections by outcome (changed, unchanged, error)",
			},
			[]string{"outcome"},
		),
		BumpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_version_bumps_total",
				Help: "Total version bumps by kind",
			},
			[]string{"kind"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "loom_trigger_queue_depth",
				Help: "Current number of pending regeneration requests",
			},
		),
		QueueDropsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loom_trigger_queue_drops_total",
				Help: "Requests dropped because the trigger queue was full",
			},
		),
		CooldownSkipsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loom_cooldown_skips_total",
				Help: "Auto regenerations skipped because the artifact was in cooldown",
			},
		),
		NotificationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loom_notifications_total",
				Help: "Notifications emitted for NOTIFY-policy artifacts",
			},
		),
	}
}

// NewNop returns metrics registered against a throwaway registry.
// Handy for tests and for components where metrics are optional.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
