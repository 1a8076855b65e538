package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublish("order_paid", "published")
	m.IncPublish("order_paid", "published")
	m.IncTerminal("payout_failed", "max_attempts")
	m.IncHeld()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "dropmart_outbox_publish_total", "event_type", "order_paid"); err != nil || got != 2 {
		t.Fatalf("expected 2 published order.paid, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dropmart_outbox_terminal_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected 1 terminal, got %f (%v)", got, err)
	}
	held := findMetricFamily(mfs, "dropmart_outbox_held_total")
	if held == nil || held.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected held counter at 1")
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.IncHeld()
	NewOutboxMetrics(nil).IncTerminal("x", "y")
}
