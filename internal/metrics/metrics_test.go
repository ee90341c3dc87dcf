// Package metrics provides unit tests for the Prometheus collector.
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kimhsiao/fieldsync/internal/queue"
)

// TestRecordDrain tests that a drain report updates counters and the depth gauge.
func TestRecordDrain(t *testing.T) {
	c := NewCollector()

	c.RecordDrain(&queue.DrainReport{
		Processed: 4,
		Succeeded: 3,
		Failed:    1,
		Remaining: 1,
		Duration:  250 * time.Millisecond,
	})

	if got := testutil.ToFloat64(c.opsDelivered); got != 3 {
		t.Errorf("expected 3 delivered, got %v", got)
	}
	if got := testutil.ToFloat64(c.opsFailed); got != 1 {
		t.Errorf("expected 1 failed, got %v", got)
	}
	if got := testutil.ToFloat64(c.drainsTotal); got != 1 {
		t.Errorf("expected 1 drain, got %v", got)
	}
	if got := testutil.ToFloat64(c.queueDepth); got != 1 {
		t.Errorf("expected depth 1, got %v", got)
	}
}

// TestRecordEnqueue tests the enqueue counter.
func TestRecordEnqueue(t *testing.T) {
	c := NewCollector()

	c.RecordEnqueue()
	c.RecordEnqueue()

	if got := testutil.ToFloat64(c.opsEnqueued); got != 2 {
		t.Errorf("expected 2 enqueued, got %v", got)
	}
}

// TestCollectorsDoNotCollide tests that two collectors can coexist.
func TestCollectorsDoNotCollide(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordEnqueue()
	if got := testutil.ToFloat64(b.opsEnqueued); got != 0 {
		t.Errorf("expected independent registries, got %v", got)
	}
}
