package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Tracker subsystem metrics
var (
	// RecordsTrackedTotal counts paths registered with the tracker
	RecordsTrackedTotal prometheus.Counter

	// RecordsReapedTotal counts records processed by the reaper
	RecordsReapedTotal prometheus.Counter

	// ReapFailuresTotal counts records whose delete strategy reported failure
	ReapFailuresTotal prometheus.Counter

	// RecordsPending tracks records currently awaiting owner reclamation
	RecordsPending prometheus.Gauge
)

// initTrackerMetrics initializes all tracker subsystem metrics
func initTrackerMetrics() {
	RecordsTrackedTotal = NewCounter(
		"tempreaper_records_tracked_total",
		"Total paths registered for deferred deletion.",
	)

	RecordsReapedTotal = NewCounter(
		"tempreaper_records_reaped_total",
		"Total records processed by the reaper.",
	)

	ReapFailuresTotal = NewCounter(
		"tempreaper_reap_failures_total",
		"Total records whose deletion attempt failed.",
	)

	RecordsPending = NewGauge(
		"tempreaper_records_pending",
		"Records currently awaiting owner reclamation.",
	)
}

// registerTrackerMetrics registers all tracker metrics with Prometheus
func registerTrackerMetrics() {
	prometheus.MustRegister(RecordsTrackedTotal)
	prometheus.MustRegister(RecordsReapedTotal)
	prometheus.MustRegister(ReapFailuresTotal)
	prometheus.MustRegister(RecordsPending)
}

// TrackerMetrics adapts the globals to the tracker package's Metrics
// interface. Call metrics.Init before handing it to a tracker.
type TrackerMetrics struct{}

func (TrackerMetrics) TrackedTotal() prometheus.Counter  { return RecordsTrackedTotal }
func (TrackerMetrics) ReapedTotal() prometheus.Counter   { return RecordsReapedTotal }
func (TrackerMetrics) FailuresTotal() prometheus.Counter { return ReapFailuresTotal }
func (TrackerMetrics) PendingRecords() prometheus.Gauge  { return RecordsPending }
