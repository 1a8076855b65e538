package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks payout transfers and inbound webhook handling.
type SettlementMetrics struct {
	payouts  *prometheus.CounterVec
	transfer prometheus.Histogram
	webhooks *prometheus.CounterVec
	closed   *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on reg. A nil
// registerer yields a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	m := &SettlementMetrics{
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "payouts_total",
			Help:      "Payout dispatch outcomes by resulting status.",
		}, []string{"status"}),
		transfer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "transfer_duration_seconds",
			Help:      "Latency of payment provider transfer calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Inbound webhook deliveries by source and outcome.",
		}, []string{"source", "outcome"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "closed_order_payments_total",
			Help:      "Payments that succeeded after their order was cancelled or refunded.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.payouts, m.transfer, m.webhooks, m.closed)
	return m
}

// IncPayout counts one payout reaching status.
func (m *SettlementMetrics) IncPayout(status string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveTransfer records the latency of one transfer call.
func (m *SettlementMetrics) ObserveTransfer(d time.Duration) {
	if m == nil || m.transfer == nil {
		return
	}
	m.transfer.Observe(d.Seconds())
}

// IncWebhook counts a webhook delivery. source is "stripe" or "supplier".
func (m *SettlementMetrics) IncWebhook(source, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// IncClosedOrderPayment counts a payment that landed on an order in status.
func (m *SettlementMetrics) IncClosedOrderPayment(status string) {
	if m == nil || m.closed == nil {
		return
	}
	m.closed.WithLabelValues(normalizeLabel(status)).Inc()
}
