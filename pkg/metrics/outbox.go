package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the outbox publisher.
type OutboxMetrics struct {
	results  *prometheus.CounterVec
	terminal *prometheus.CounterVec
	held     prometheus.Counter
}

// NewOutboxMetrics registers the publisher metrics on reg. A nil registerer
// yields a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_total",
			Help:      "Publish attempts by event type and result.",
		}, []string{"event_type", "result"}),
		terminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "terminal_total",
			Help:      "Events parked for good, by event type and reason.",
		}, []string{"event_type", "reason"}),
		held: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "held_total",
			Help:      "Events deferred behind an earlier failure for the same order.",
		}),
	}
	reg.MustRegister(m.results, m.terminal, m.held)
	return m
}

// IncPublish counts one publish attempt; result is "published" or "failed".
func (m *OutboxMetrics) IncPublish(eventType, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *OutboxMetrics) IncTerminal(eventType, reason string) {
	if m == nil || m.terminal == nil {
		return
	}
	m.terminal.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

func (m *OutboxMetrics) IncHeld() {
	if m == nil || m.held == nil {
		return
	}
	m.held.Inc()
}
