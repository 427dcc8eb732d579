package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"temp-reaper/tracker"
)

// TestMetricsInit verifies that Init() is idempotent and registers metrics
func TestMetricsInit(t *testing.T) {
	// Call Init multiple times - should be idempotent via sync.Once
	Init()
	Init()
	Init()

	if RecordsTrackedTotal == nil {
		t.Error("RecordsTrackedTotal should be initialized")
	}
	if RecordsReapedTotal == nil {
		t.Error("RecordsReapedTotal should be initialized")
	}
	if ReapFailuresTotal == nil {
		t.Error("ReapFailuresTotal should be initialized")
	}
	if RecordsPending == nil {
		t.Error("RecordsPending should be initialized")
	}
	if SweepDuration == nil {
		t.Error("SweepDuration should be initialized")
	}
	if BytesFreedTotal == nil {
		t.Error("BytesFreedTotal should be initialized")
	}
	if FilesSweptTotal == nil {
		t.Error("FilesSweptTotal should be initialized")
	}
	if ErrorsTotal == nil {
		t.Error("ErrorsTotal should be initialized")
	}
	if FreeSpacePercent == nil {
		t.Error("FreeSpacePercent should be initialized")
	}

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"tempreaper_records_tracked_total",
		"tempreaper_records_reaped_total",
		"tempreaper_reap_failures_total",
		"tempreaper_records_pending",
		"tempreaper_sweep_duration_seconds",
		"tempreaper_bytes_freed_total",
		"tempreaper_files_swept_total",
		"tempreaper_sweep_last_run_timestamp",
		"tempreaper_daemon_errors_total",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range mfs {
		foundMetrics[*mf.Name] = true
	}

	for _, expected := range expectedMetrics {
		if !foundMetrics[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

// TestTrackerMetricsAdapter verifies the adapter satisfies the tracker's
// Metrics interface and hands out the registered collectors
func TestTrackerMetricsAdapter(t *testing.T) {
	Init()

	var m tracker.Metrics = TrackerMetrics{}

	if m.TrackedTotal() == nil || m.ReapedTotal() == nil ||
		m.FailuresTotal() == nil || m.PendingRecords() == nil {
		t.Error("adapter must expose initialized collectors")
	}
}

// TestHelperFunctions verifies that helper constructors create valid metrics
func TestHelperFunctions(t *testing.T) {
	h := NewDurationHistogram("test_duration_seconds", "test")
	if h == nil {
		t.Error("NewDurationHistogram returned nil")
	}

	c := NewCounter("test_total", "test")
	if c == nil {
		t.Error("NewCounter returned nil")
	}
	c.Inc()

	g := NewGauge("test_gauge", "test")
	if g == nil {
		t.Error("NewGauge returned nil")
	}
	g.Set(42)

	cv := NewCounterVec("test_vec_total", "test", []string{"path"})
	if cv == nil {
		t.Error("NewCounterVec returned nil")
	}
	cv.WithLabelValues("/spool").Inc()

	gv := NewGaugeVec("test_vec_gauge", "test", []string{"path"})
	if gv == nil {
		t.Error("NewGaugeVec returned nil")
	}
	gv.WithLabelValues("/spool").Set(1)
}

// TestTriggerChannel verifies the trigger channel is usable after Init
func TestTriggerChannel(t *testing.T) {
	Init()

	ch := TriggerChannel()
	if ch == nil {
		t.Fatal("TriggerChannel returned nil after Init")
	}

	triggerChannel <- struct{}{}
	select {
	case <-ch:
	default:
		t.Error("trigger was not delivered")
	}
}
