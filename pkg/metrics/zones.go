package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Zone check outcomes.
const (
	ZoneOutcomeInZone   = "in_zone"
	ZoneOutcomeAccepted = "outside_accepted"
	ZoneOutcomeBlocked  = "outside_blocked"
)

// ZoneMetrics records delivery location checks.
type ZoneMetrics struct {
	checks  *prometheus.CounterVec
	rejects *prometheus.CounterVec
}

// NewZoneMetrics registers the zone metrics on the provided registerer.
func NewZoneMetrics(reg prometheus.Registerer) *ZoneMetrics {
	if reg == nil {
		return &ZoneMetrics{}
	}
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_zone_checks_total",
		Help: "Delivery location checks by outcome.",
	}, []string{"outcome"})
	rejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_zone_rejects_total",
		Help: "Stored delivery zones excluded from matching, by reason.",
	}, []string{"reason"})
	reg.MustRegister(checks, rejects)
	return &ZoneMetrics{checks: checks, rejects: rejects}
}

// IncCheck counts one location check.
func (m *ZoneMetrics) IncCheck(outcome string) {
	if m == nil || m.checks == nil {
		return
	}
	m.checks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReject counts one zone rejected at load time.
func (m *ZoneMetrics) IncReject(reason string) {
	if m == nil || m.rejects == nil {
		return
	}
	m.rejects.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
