package fsops

import "sync"

// Recorder implements Strategy for testing.
// Records all delete calls without touching the filesystem and answers
// with a fixed Result. Safe for use from the reaper goroutine.
type Recorder struct {
	mu     sync.Mutex
	calls  []string
	Result bool
}

func (r *Recorder) AttemptDelete(path string) bool {
	r.mu.Lock()
	r.calls = append(r.calls, path)
	r.mu.Unlock()
	return r.Result
}

func (r *Recorder) String() string { return "recorder" }

// Calls returns a copy of the paths passed to AttemptDelete so far.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}
