package remittance

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountOutcomes(t *testing.T) {
	h := newHarness(t)
	m := NewMetrics(prometheus.NewRegistry())
	h.svc.metrics = m
	h.init(t)
	h.fund("alice", 1000*unit)

	h.create(t, "alice", "bob", 500*unit)
	_, _ = h.svc.CreateRemittance(as("alice"), "alice", "bob", 1, testAsset)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create")); got != 1 {
		t.Errorf("Expected 1 successful create, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("create", "amount_out_of_range")); got != 1 {
		t.Errorf("Expected 1 amount_out_of_range failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.escrowedAmount); got != float64(500*unit) {
		t.Errorf("Expected escrowed amount %d, got %v", 500*unit, got)
	}

	if _, err := h.svc.GetUserHistory(context.Background(), "alice", 0, 10); err != nil {
		t.Fatalf("GetUserHistory failed: %v", err)
	}
	if got := testutil.CollectAndCount(m.historyScanLengths); got != 1 {
		t.Errorf("Expected history histogram to be collected, got %d", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.succeeded("create")
	m.failed("create", ErrNotFound)
	m.escrowed(1)
	m.compensated(true)
	m.scanned(1)
}
