package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish outcomes.
const (
	OutboxPublished = "published"
	OutboxRetried   = "retried"
	OutboxTerminal  = "terminal"
	OutboxDeferred  = "deferred"
)

// OutboxMetrics tracks the publisher's progress through outbox_events.
type OutboxMetrics struct {
	events *prometheus.CounterVec
	lag    prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the publisher, by outcome.",
	}, []string{"outcome"})
	lag := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_oldest_pending_age_seconds",
		Help:      "Age of the oldest row in the last fetched batch.",
	})
	reg.MustRegister(events, lag)
	return &OutboxMetrics{events: events, lag: lag}
}

func (m *OutboxMetrics) Count(outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveLag records how far behind the publisher is. Zero means idle.
func (m *OutboxMetrics) ObserveLag(d time.Duration) {
	if m == nil || m.lag == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	m.lag.Set(d.Seconds())
}
