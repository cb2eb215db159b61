package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PresenceMetrics records driver presence tracking.
type PresenceMetrics struct {
	online      prometheus.Gauge
	subscribers prometheus.Gauge
	events      *prometheus.CounterVec
	drift       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	reconcile   prometheus.Histogram
}

// NewPresenceMetrics registers the presence metrics on the provided registerer.
func NewPresenceMetrics(reg prometheus.Registerer) *PresenceMetrics {
	if reg == nil {
		return &PresenceMetrics{}
	}
	online := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "presence_online_drivers",
		Help: "Drivers currently in the local online set.",
	})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "presence_subscribers",
		Help: "Active presence subscriptions.",
	})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_events_total",
		Help: "Presence events applied, by kind.",
	}, []string{"kind"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_drift_corrections_total",
		Help: "Synthetic join/leave events emitted by reconciliation.",
	}, []string{"kind"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_channel_failures_total",
		Help: "Presence channel failures, by stage.",
	}, []string{"stage"})
	reconcile := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "presence_reconcile_duration_seconds",
		Help:    "Duration of presence reconciliation passes.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(online, subscribers, events, drift, failures, reconcile)
	return &PresenceMetrics{
		online:      online,
		subscribers: subscribers,
		events:      events,
		drift:       drift,
		failures:    failures,
		reconcile:   reconcile,
	}
}

// SetOnline records the size of the online set.
func (m *PresenceMetrics) SetOnline(n int) {
	if m == nil || m.online == nil {
		return
	}
	m.online.Set(float64(n))
}

// SetSubscribers records the number of active subscriptions.
func (m *PresenceMetrics) SetSubscribers(n int) {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// IncEvent counts one applied channel event.
func (m *PresenceMetrics) IncEvent(kind string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(kind)).Inc()
}

// AddDrift counts synthetic events emitted by reconciliation.
func (m *PresenceMetrics) AddDrift(kind string, n int) {
	if m == nil || m.drift == nil || n <= 0 {
		return
	}
	m.drift.WithLabelValues(normalizeLabel(kind)).Add(float64(n))
}

// IncFailure counts a channel failure at stage (dial, reconcile).
func (m *PresenceMetrics) IncFailure(stage string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveReconcile records the duration of a reconciliation pass.
func (m *PresenceMetrics) ObserveReconcile(d time.Duration) {
	if m == nil || m.reconcile == nil {
		return
	}
	m.reconcile.Observe(d.Seconds())
}
