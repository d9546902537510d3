package scan

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.scanStarted()
	m.scanFinished(OutcomeCompleted, 1)
	m.scanSkipped()
	m.file(FileHit)
	m.pruned(3)
}

func TestMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.scanStarted()
	if got := testutil.ToFloat64(m.ScanInProgress); got != 1 {
		t.Errorf("in progress = %v, want 1", got)
	}
	m.file(FileHit)
	m.file(FileHit)
	m.file(FileMiss)
	m.pruned(2)
	m.scanFinished(OutcomeCompleted, 0.5)

	if got := testutil.ToFloat64(m.ScanInProgress); got != 0 {
		t.Errorf("in progress = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.FilesTotal.WithLabelValues(FileHit)); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PrunedTotal); got != 2 {
		t.Errorf("pruned = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ScansTotal.WithLabelValues(OutcomeCompleted)); got != 1 {
		t.Errorf("completed = %v, want 1", got)
	}

	count, err := testutil.GatherAndCount(reg, "vaultcloud_scan_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("duration series = %d, want 1", count)
	}
}
