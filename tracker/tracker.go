// Package tracker keeps track of files awaiting deletion and deletes them
// when an associated owner object becomes unreachable.
//
// Each path is registered together with an owner. Once nothing references
// the owner anymore, a background reaper goroutine deletes the path using
// the registered strategy. Paths whose deletion fails are collected and can
// be polled via DeleteFailures.
package tracker

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"runtime"
	"sync"

	"temp-reaper/fsops"
)

// Backlog of liveness notifications between the runtime's cleanup
// goroutine and the reaper.
const readyBacklog = 64

var (
	ErrEmptyPath = errors.New("path must not be empty")
	ErrBadOwner  = errors.New("owner must be a non-nil pointer")
	ErrExiting   = errors.New("no new paths can be tracked once ExitWhenFinished is called")
)

// record pairs a path with its delete strategy. It is the element that
// surfaces on the ready channel when the owner is reclaimed and must never
// reference the owner, or the owner could not be reclaimed at all.
type record struct {
	path     string
	strategy fsops.Strategy
}

// Tracker owns the registry of pending deletions and the reaper goroutine
// that drains liveness notifications. The zero value is not usable; create
// instances with New.
type Tracker struct {
	mu      sync.Mutex // guards pending, exit, started
	pending map[*record]struct{}
	exit    bool
	started bool

	failMu   sync.Mutex
	failures []string

	ready chan *record  // liveness notifications, fed by runtime cleanups
	wake  chan struct{} // nudges the reaper to re-check the exit condition
	done  chan struct{} // closed when the reaper terminates

	logger  Logger
	metrics Metrics
}

// New creates a Tracker. The reaper goroutine is started lazily by the
// first Track call.
func New() *Tracker {
	return &Tracker{
		pending: make(map[*record]struct{}),
		ready:   make(chan *record, readyBacklog),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  &stdLogger{Logger: log.Default()},
	}
}

// SetLogger replaces the default standard-library logger. Call before the
// first Track.
func (t *Tracker) SetLogger(logger Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// SetMetrics wires instrumentation for tracked, reaped, failed and pending
// records. Call before the first Track.
func (t *Tracker) SetMetrics(m Metrics) {
	t.metrics = m
}

// Track registers path for deletion once owner becomes unreachable.
// owner must be a non-nil pointer; the tracker never retains a strong
// reference to it. A nil strategy defaults to fsops.Normal. Tracking the
// same path twice creates two independent records.
//
// Returns ErrExiting, with nothing registered, once ExitWhenFinished has
// been called.
func (t *Tracker) Track(path string, owner any, strategy fsops.Strategy) error {
	if path == "" {
		return ErrEmptyPath
	}
	anchor := reflect.ValueOf(owner)
	if anchor.Kind() != reflect.Pointer || anchor.IsNil() {
		return fmt.Errorf("%w, got %T", ErrBadOwner, owner)
	}
	if strategy == nil {
		strategy = fsops.Normal{}
	}

	rec := &record{path: path, strategy: strategy}

	t.mu.Lock()
	if t.exit {
		t.mu.Unlock()
		return ErrExiting
	}
	if !t.started {
		t.started = true
		go t.reap()
	}
	t.pending[rec] = struct{}{}
	t.mu.Unlock()

	// The cleanup argument is the record, not the owner, so the
	// registration does not extend the owner's lifetime. Multiple records
	// may share one owner; each gets its own cleanup.
	runtime.AddCleanup((*byte)(anchor.UnsafePointer()), t.enqueue, rec)
	runtime.KeepAlive(owner)

	if t.metrics != nil {
		t.metrics.TrackedTotal().Inc()
		t.metrics.PendingRecords().Inc()
	}
	return nil
}

// ExitWhenFinished lets the reaper terminate once every record registered
// so far has been processed. One-way, idempotent and non-blocking; it does
// not wait for the reaper to actually stop, and it does not abort a delete
// already in progress.
func (t *Tracker) ExitWhenFinished() {
	t.mu.Lock()
	t.exit = true
	started := t.started
	t.mu.Unlock()

	if started {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

// TrackCount returns the number of records awaiting deletion. The value is
// a snapshot; it can change concurrently.
func (t *Tracker) TrackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// DeleteFailures returns a copy of the paths that failed to delete, in the
// order the failures were observed.
func (t *Tracker) DeleteFailures() []string {
	t.failMu.Lock()
	defer t.failMu.Unlock()
	out := make([]string, len(t.failures))
	copy(out, t.failures)
	return out
}

// enqueue runs on the runtime's cleanup goroutine when an owner has been
// reclaimed. The send can block while the reaper is busy; it never blocks
// after termination because the reaper only terminates once every pending
// record's notification has been received.
func (t *Tracker) enqueue(rec *record) {
	t.ready <- rec
}

// reap drains liveness notifications until ExitWhenFinished has been
// called and no records remain. Registered records are always honored:
// the exit flag alone does not stop the loop while work is pending.
func (t *Tracker) reap() {
	defer close(t.done)
	for {
		t.mu.Lock()
		finished := t.exit && len(t.pending) == 0
		t.mu.Unlock()
		if finished {
			return
		}

		select {
		case rec := <-t.ready:
			t.mu.Lock()
			delete(t.pending, rec)
			t.mu.Unlock()

			if !t.deleteQuietly(rec) {
				t.failMu.Lock()
				t.failures = append(t.failures, rec.path)
				t.failMu.Unlock()
				if t.metrics != nil {
					t.metrics.FailuresTotal().Inc()
				}
				t.log().Error("delete failed", "path", rec.path, "strategy", rec.strategy.String())
			}
			if t.metrics != nil {
				t.metrics.ReapedTotal().Inc()
				t.metrics.PendingRecords().Dec()
			}
		case <-t.wake:
			// Spurious unless the exit condition now holds; the loop
			// re-checks it before waiting again.
		}
	}
}

// deleteQuietly confines a panicking strategy to the record being
// processed so later records are still reaped.
func (t *Tracker) deleteQuietly(rec *record) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			t.log().Error("delete strategy panicked", "path", rec.path, "panic", r)
		}
	}()
	return rec.strategy.AttemptDelete(rec.path)
}
