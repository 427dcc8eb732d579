package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep subsystem metrics
var (
	// SweepDuration tracks how long sweep cycles take
	SweepDuration prometheus.Histogram

	// BytesFreedTotal tracks total bytes freed across all sweeps
	BytesFreedTotal prometheus.Counter

	// FilesSweptTotal tracks total orphaned files deleted by sweeps
	FilesSweptTotal prometheus.Counter

	// SweepLastRunTimestamp records Unix timestamp of the last sweep
	SweepLastRunTimestamp prometheus.Gauge

	// PathBytesFreedTotal tracks bytes freed per spool root
	PathBytesFreedTotal *prometheus.CounterVec

	// ErrorsTotal tracks total errors encountered by the daemon
	ErrorsTotal prometheus.Counter

	// FreeSpacePercent tracks current free space percentage per spool root
	FreeSpacePercent *prometheus.GaugeVec
)

// initSweepMetrics initializes all sweep subsystem metrics
func initSweepMetrics() {
	SweepDuration = NewDurationHistogram(
		"tempreaper_sweep_duration_seconds",
		"Duration of sweep cycles in seconds.",
	)

	BytesFreedTotal = NewBytesCounter(
		"tempreaper_bytes_freed_total",
		"Total bytes freed by orphan sweeps.",
	)

	FilesSweptTotal = NewCounter(
		"tempreaper_files_swept_total",
		"Total orphaned files deleted by sweeps.",
	)

	SweepLastRunTimestamp = NewGauge(
		"tempreaper_sweep_last_run_timestamp",
		"Unix timestamp of the last sweep cycle.",
	)

	PathBytesFreedTotal = NewCounterVec(
		"tempreaper_path_bytes_freed_total",
		"Bytes freed per spool root.",
		[]string{"path"},
	)

	ErrorsTotal = NewCounter(
		"tempreaper_daemon_errors_total",
		"Total number of errors encountered by the daemon.",
	)

	FreeSpacePercent = NewGaugeVec(
		"tempreaper_free_space_percent",
		"Current free space percentage for spool roots.",
		[]string{"path"},
	)
}

// registerSweepMetrics registers all sweep metrics with Prometheus
func registerSweepMetrics() {
	prometheus.MustRegister(SweepDuration)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(FilesSweptTotal)
	prometheus.MustRegister(SweepLastRunTimestamp)
	prometheus.MustRegister(PathBytesFreedTotal)
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(FreeSpacePercent)
}

// RecordSweepRun updates the last run timestamp to current time
func RecordSweepRun() {
	SweepLastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordPathSweep records bytes freed under a specific spool root
func RecordPathSweep(root string, bytes int64) {
	PathBytesFreedTotal.WithLabelValues(root).Add(float64(bytes))
}

// UpdateFreeSpacePercent updates the free space percentage for a root
func UpdateFreeSpacePercent(root string, percent float64) {
	FreeSpacePercent.WithLabelValues(root).Set(percent)
}
