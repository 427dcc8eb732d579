package fsops

import "os"

// Strategy abstracts filesystem delete operations for the tracker.
// AttemptDelete reports whether the path was removed; it must never
// panic, and any underlying I/O failure is reported as false. A missing
// path counts as a failure.
type Strategy interface {
	AttemptDelete(path string) bool
	String() string
}

// Normal deletes files and empty directories via os.Remove.
// It fails on non-empty directories.
type Normal struct{}

func (Normal) AttemptDelete(path string) bool {
	return os.Remove(path) == nil
}

func (Normal) String() string { return "normal" }

// Force deletes files and directories recursively via os.RemoveAll.
type Force struct{}

func (Force) AttemptDelete(path string) bool {
	// os.RemoveAll reports success for a missing path; stat first so a
	// path that was never there still shows up as a failure.
	if _, err := os.Lstat(path); err != nil {
		return false
	}
	return os.RemoveAll(path) == nil
}

func (Force) String() string { return "force" }
