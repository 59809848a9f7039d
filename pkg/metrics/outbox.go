package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes reported by the relay.
const (
	DeliveryPublished    = "published"
	DeliveryRetry        = "retry"
	DeliveryDeadLettered = "dead_lettered"
)

// OutboxMetrics covers the relay: per-event outcomes, dead-letter reasons,
// publish latency and how full each claimed batch was.
type OutboxMetrics struct {
	deliveries  *prometheus.CounterVec
	deadLetters *prometheus.CounterVec
	latency     prometheus.Histogram
	batch       prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "cafe", Subsystem: "outbox", Name: name, Help: help}
	}
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("deliveries_total", "Relay attempts by event type and outcome.")),
			[]string{"event_type", "outcome"},
		),
		deadLetters: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("dead_letters_total", "Events moved to outbox_dlq.")),
			[]string{"event_type", "reason"},
		),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cafe",
			Subsystem: "outbox",
			Name:      "publish_seconds",
			Help:      "Time to get a publish acknowledged.",
			Buckets:   prometheus.DefBuckets,
		}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cafe",
			Subsystem: "outbox",
			Name:      "batch_size",
			Help:      "Rows claimed per relay pass.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	reg.MustRegister(m.deliveries, m.deadLetters, m.latency, m.batch)
	return m
}

func (m *OutboxMetrics) ObserveDelivery(eventType, outcome string, took time.Duration) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
	if took > 0 {
		m.latency.Observe(took.Seconds())
	}
}

func (m *OutboxMetrics) ObserveDeadLetter(eventType, reason string) {
	if m == nil || m.deadLetters == nil {
		return
	}
	m.deadLetters.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

func (m *OutboxMetrics) ObserveBatch(size int) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(float64(size))
}
