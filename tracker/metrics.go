package tracker

import "github.com/prometheus/client_golang/prometheus"

// Metrics interface for tracker instrumentation. The daemon wires this to
// the Prometheus registry; library users can leave it unset.
type Metrics interface {
	TrackedTotal() prometheus.Counter
	ReapedTotal() prometheus.Counter
	FailuresTotal() prometheus.Counter
	PendingRecords() prometheus.Gauge
}
