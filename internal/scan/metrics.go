package scan

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Scan outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFresh     = "fresh"
	OutcomeCancelled = "cancelled"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Per-file result label values.
const (
	FileHit    = "hit"
	FileMiss   = "miss"
	FileFailed = "failed"
)

// Metrics holds the Prometheus collectors for vault scans.
// A nil *Metrics records nothing.
type Metrics struct {
	ScansTotal     *prometheus.CounterVec
	FilesTotal     *prometheus.CounterVec
	PrunedTotal    prometheus.Counter
	ScanDuration   prometheus.Histogram
	ScanInProgress prometheus.Gauge
}

// NewMetrics creates the scan collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultcloud_scans_total",
				Help: "Total vault scans by outcome (completed, fresh, cancelled, skipped, failed).",
			},
			[]string{"outcome"},
		),
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultcloud_scan_files_total",
				Help: "Notes visited by scans by cache result (hit, miss, failed).",
			},
			[]string{"result"},
		),
		PrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vaultcloud_scan_pruned_total",
				Help: "Cache entries removed because their note no longer exists.",
			},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vaultcloud_scan_duration_seconds",
				Help:    "Duration of vault scans in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ScanInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vaultcloud_scan_in_progress",
				Help: "1 while a vault scan is running.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ScansTotal,
			m.FilesTotal,
			m.PrunedTotal,
			m.ScanDuration,
			m.ScanInProgress,
		)
	}

	return m
}

func (m *Metrics) scanStarted() {
	if m == nil {
		return
	}
	m.ScanInProgress.Set(1)
}

func (m *Metrics) scanFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ScanInProgress.Set(0)
	m.ScansTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted || outcome == OutcomeFresh {
		m.ScanDuration.Observe(seconds)
	}
}

func (m *Metrics) scanSkipped() {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(OutcomeSkipped).Inc()
}

func (m *Metrics) file(result string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) pruned(n int) {
	if m == nil || n == 0 {
		return
	}
	m.PrunedTotal.Add(float64(n))
}
