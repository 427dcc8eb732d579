package tracker

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"temp-reaper/fsops"
)

// waitFor polls cond while forcing garbage collection so that cleanup
// notifications for dropped owners are delivered.
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

// register tracks path against an owner that goes out of reach when this
// helper returns.
func register(t *testing.T, tr *Tracker, path string, strategy fsops.Strategy) {
	t.Helper()
	owner := new(int)
	if err := tr.Track(path, owner, strategy); err != nil {
		t.Fatalf("Track(%q) failed: %v", path, err)
	}
}

func reaperExited(tr *Tracker) bool {
	select {
	case <-tr.done:
		return true
	default:
		return false
	}
}

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func TestTrackValidation(t *testing.T) {
	tr := New()

	if err := tr.Track("", new(int), nil); err != ErrEmptyPath {
		t.Errorf("empty path: got %v, want ErrEmptyPath", err)
	}
	if err := tr.Track("/tmp/x", 42, nil); err == nil {
		t.Error("non-pointer owner should be rejected")
	}
	if err := tr.Track("/tmp/x", nil, nil); err == nil {
		t.Error("nil owner should be rejected")
	}
	if err := tr.Track("/tmp/x", (*int)(nil), nil); err == nil {
		t.Error("typed nil owner should be rejected")
	}

	if n := tr.TrackCount(); n != 0 {
		t.Errorf("rejected input must not register records, count = %d", n)
	}
}

func TestDeleteOnUnreachableOwner(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tr := New()
	register(t, tr, path, fsops.Normal{})

	waitFor(t, "file to be reaped", func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})

	waitFor(t, "track count to drop", func() bool { return tr.TrackCount() == 0 })
	if fails := tr.DeleteFailures(); len(fails) != 0 {
		t.Errorf("successful delete must not be logged as failure: %v", fails)
	}
}

func TestFailedDeleteIsLogged(t *testing.T) {
	ghost := filepath.Join(t.TempDir(), "ghost")

	tr := New()
	register(t, tr, ghost, fsops.Normal{})

	waitFor(t, "failure to be logged", func() bool {
		return contains(tr.DeleteFailures(), ghost)
	})
	if n := tr.TrackCount(); n != 0 {
		t.Errorf("processed record still counted, count = %d", n)
	}
}

func TestConservativeStrategyOnNonEmptyDir(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "d")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "inner"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tr := New()
	register(t, tr, dir, fsops.Normal{})

	waitFor(t, "failure to be logged", func() bool {
		return contains(tr.DeleteFailures(), dir)
	})
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("conservative strategy must leave a non-empty directory in place: %v", err)
	}
}

func TestForceStrategyOnNonEmptyDir(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "d")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "inner"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tr := New()
	register(t, tr, dir, fsops.Force{})

	waitFor(t, "directory to be reaped", func() bool {
		_, err := os.Stat(dir)
		return os.IsNotExist(err)
	})
	waitFor(t, "track count to drop", func() bool { return tr.TrackCount() == 0 })
	if fails := tr.DeleteFailures(); len(fails) != 0 {
		t.Errorf("unexpected failures: %v", fails)
	}
}

func TestStrategyInvokedAtMostOncePerRecord(t *testing.T) {
	tr := New()
	rec := &fsops.Recorder{Result: true}

	owner := new(int)
	paths := []string{"/tmp/r1", "/tmp/r2", "/tmp/r3", "/tmp/r4", "/tmp/r5"}
	for _, p := range paths {
		if err := tr.Track(p, owner, rec); err != nil {
			t.Fatalf("Track(%q) failed: %v", p, err)
		}
	}
	runtime.KeepAlive(owner)
	owner = nil

	waitFor(t, "all records to be reaped", func() bool { return tr.TrackCount() == 0 })

	calls := rec.Calls()
	if len(calls) != len(paths) {
		t.Fatalf("got %d strategy calls, want %d: %v", len(calls), len(paths), calls)
	}
	seen := make(map[string]int)
	for _, c := range calls {
		seen[c]++
	}
	for _, p := range paths {
		if seen[p] != 1 {
			t.Errorf("path %s deleted %d times, want exactly once", p, seen[p])
		}
	}
}

func TestTrackAfterExitRejected(t *testing.T) {
	tr := New()
	rec := &fsops.Recorder{Result: true}

	ownerA := new(int)
	ownerB := new(int)
	if err := tr.Track("/tmp/one", ownerA, rec); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := tr.Track("/tmp/two", ownerB, rec); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	tr.ExitWhenFinished()
	tr.ExitWhenFinished() // idempotent

	if err := tr.Track("/tmp/three", new(int), rec); err != ErrExiting {
		t.Fatalf("Track after ExitWhenFinished: got %v, want ErrExiting", err)
	}
	if n := tr.TrackCount(); n != 2 {
		t.Errorf("count changed by rejected Track: got %d, want 2", n)
	}

	// Owners are still reachable, so the reaper must keep waiting even
	// though exit was requested.
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	if reaperExited(tr) {
		t.Fatal("reaper exited while records were still pending")
	}
	runtime.KeepAlive(ownerA)
	runtime.KeepAlive(ownerB)
	ownerA, ownerB = nil, nil

	waitFor(t, "reaper to terminate", func() bool { return reaperExited(tr) })

	calls := rec.Calls()
	if len(calls) != 2 {
		t.Errorf("records registered before exit must still be processed, got calls %v", calls)
	}
}

func TestExitDrainsAllPendingRecords(t *testing.T) {
	tmpDir := t.TempDir()
	tr := New()

	const n = 20
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := filepath.Join(tmpDir, "pending", "f"+string(rune('a'+i)))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		register(t, tr, p, fsops.Normal{})
		paths = append(paths, p)
	}

	tr.ExitWhenFinished()

	waitFor(t, "reaper to drain and terminate", func() bool { return reaperExited(tr) })

	// Every registered path is accounted for: deleted or logged.
	fails := tr.DeleteFailures()
	for _, p := range paths {
		_, err := os.Stat(p)
		if !os.IsNotExist(err) && !contains(fails, p) {
			t.Errorf("path %s neither deleted nor logged as failure", p)
		}
	}
	if n := tr.TrackCount(); n != 0 {
		t.Errorf("registry not empty after drain: %d", n)
	}
}

func TestExitBeforeFirstTrack(t *testing.T) {
	tr := New()
	tr.ExitWhenFinished()

	if err := tr.Track("/tmp/x", new(int), nil); err != ErrExiting {
		t.Errorf("got %v, want ErrExiting", err)
	}
}

func TestPanickingStrategyDoesNotKillReaper(t *testing.T) {
	tmpDir := t.TempDir()
	survivor := filepath.Join(tmpDir, "survivor")
	if err := os.WriteFile(survivor, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tr := New()
	register(t, tr, "/tmp/bomb", panicStrategy{})

	waitFor(t, "panicking record to be logged as failure", func() bool {
		return contains(tr.DeleteFailures(), "/tmp/bomb")
	})

	// The reaper must still process records registered afterwards.
	register(t, tr, survivor, fsops.Normal{})
	waitFor(t, "later record to be reaped", func() bool {
		_, err := os.Stat(survivor)
		return os.IsNotExist(err)
	})
}

type panicStrategy struct{}

func (panicStrategy) AttemptDelete(string) bool { panic("boom") }
func (panicStrategy) String() string            { return "panic" }

func TestDuplicatePathsAreDistinctRecords(t *testing.T) {
	tr := New()
	rec := &fsops.Recorder{Result: true}

	register(t, tr, "/tmp/same", rec)
	register(t, tr, "/tmp/same", rec)

	waitFor(t, "both records to be reaped", func() bool { return tr.TrackCount() == 0 })
	if calls := rec.Calls(); len(calls) != 2 {
		t.Errorf("got %d strategy calls, want 2", len(calls))
	}
}
