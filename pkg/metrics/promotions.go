package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromotionMetrics records promotion evaluation outcomes.
type PromotionMetrics struct {
	selections *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	rejects    *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewPromotionMetrics registers the promotion metrics on the provided registerer.
func NewPromotionMetrics(reg prometheus.Registerer) *PromotionMetrics {
	if reg == nil {
		return &PromotionMetrics{}
	}
	selections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promotion_selections_total",
		Help: "Best-promotion selections by promotion type, none when nothing applied.",
	}, []string{"type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promotion_not_applicable_total",
		Help: "Promotions filtered out during evaluation, by reason.",
	}, []string{"reason"})
	rejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promotion_rejects_total",
		Help: "Stored promotions that could not be loaded, by reason.",
	}, []string{"reason"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "promotion_evaluation_duration_seconds",
		Help:    "Time spent loading and evaluating promotions for an order.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(selections, skipped, rejects, duration)
	return &PromotionMetrics{
		selections: selections,
		skipped:    skipped,
		rejects:    rejects,
		duration:   duration,
	}
}

// IncSelection counts one selection result.
func (m *PromotionMetrics) IncSelection(promotionType string) {
	if m == nil || m.selections == nil {
		return
	}
	m.selections.WithLabelValues(normalizeLabel(promotionType)).Inc()
}

// IncSkipped counts one promotion filtered out for reason.
func (m *PromotionMetrics) IncSkipped(reason string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncReject counts one stored promotion rejected at load time.
func (m *PromotionMetrics) IncReject(reason string) {
	if m == nil || m.rejects == nil {
		return
	}
	m.rejects.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveDuration records one evaluation.
func (m *PromotionMetrics) ObserveDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
