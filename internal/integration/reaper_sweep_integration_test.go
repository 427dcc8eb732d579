package integration

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"temp-reaper/fsops"
	"temp-reaper/internal/config"
	"temp-reaper/internal/metrics"
	"temp-reaper/internal/safety"
	"temp-reaper/internal/sweep"
	"temp-reaper/spool"
	"temp-reaper/tracker"
)

func init() {
	metrics.Init()
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

// spawnSpoolFile creates a spool file and drops the handle on return,
// simulating application code that forgot to clean up.
func spawnSpoolFile(t *testing.T, tr *tracker.Tracker, dir string) string {
	t.Helper()
	sf, err := spool.New(tr, dir, "job-*.tmp")
	if err != nil {
		t.Fatalf("spool.New failed: %v", err)
	}
	if _, err := sf.Write([]byte("intermediate results")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return sf.Name()
}

// TestTrackerAndSweepCoverTheSpoolRoot verifies the two cleanup paths
// together: the in-process tracker reaps files whose owners die inside
// the process, and the sweep collects aged leftovers from earlier runs.
func TestTrackerAndSweepCoverTheSpoolRoot(t *testing.T) {
	root := t.TempDir()

	// Leftover from a "previous process": old enough to be swept.
	leftover := filepath.Join(root, "crashed-job.tmp")
	if err := os.WriteFile(leftover, []byte("stale"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(leftover, old, old); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	// Live path: spool file whose handle is dropped in-process.
	tr := tracker.New()
	tracked := spawnSpoolFile(t, tr, root)

	waitFor(t, "tracked file to be reaped", func() bool {
		_, err := os.Stat(tracked)
		return os.IsNotExist(err)
	})

	// The tracker cannot help the leftover; the sweep does.
	cfg := &config.Config{SpoolPaths: []string{root}, AgeOffMinutes: 30}
	candidates, err := sweep.Scan(cfg, time.Now())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	sweeper := sweep.NewSweeper(log.Default(), fsops.Normal{}, safety.NewValidator([]string{root}, nil), nil, false)
	if _, _, err := sweeper.Sweep(cfg, candidates); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Errorf("leftover survived the sweep: %v", err)
	}
	if fails := tr.DeleteFailures(); len(fails) != 0 {
		t.Errorf("unexpected tracker failures: %v", fails)
	}
}

// TestSweepNeverTouchesFreshTrackedFiles verifies a sweep cycle leaves
// files alone while their owners are still alive.
func TestSweepNeverTouchesFreshTrackedFiles(t *testing.T) {
	root := t.TempDir()

	tr := tracker.New()
	sf, err := spool.New(tr, root, "active-*.tmp")
	if err != nil {
		t.Fatalf("spool.New failed: %v", err)
	}
	defer sf.Close()

	cfg := &config.Config{SpoolPaths: []string{root}, AgeOffMinutes: 30}
	candidates, err := sweep.Scan(cfg, time.Now())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("fresh files must not be sweep candidates: %+v", candidates)
	}

	sweeper := sweep.NewSweeper(log.Default(), fsops.Normal{}, safety.NewValidator([]string{root}, nil), nil, false)
	if _, _, err := sweeper.Sweep(cfg, candidates); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if _, err := os.Stat(sf.Name()); err != nil {
		t.Errorf("active spool file must survive the sweep: %v", err)
	}
	if n := tr.TrackCount(); n != 1 {
		t.Errorf("spool file should still be tracked, count = %d", n)
	}
}
