// Package spool provides temp-file-backed scratch files tied to a
// deletion tracker. The backing file of a spool File is removed once the
// File itself becomes unreachable, so callers that lose or leak a handle
// never leave the file behind.
package spool

import (
	"fmt"
	"os"

	"temp-reaper/tracker"
)

// File is a scratch file whose on-disk backing is owned by a tracker.
// Close releases the descriptor only; the file is deleted when the last
// reference to the File is gone.
type File struct {
	f    *os.File
	path string
}

// New creates a temp file under dir (os.TempDir when empty) following the
// os.CreateTemp pattern rules, and registers it with tr against the
// returned handle.
func New(tr *tracker.Tracker, dir, pattern string) (*File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}

	sf := &File{f: f, path: f.Name()}
	if err := tr.Track(sf.path, sf, nil); err != nil {
		f.Close()
		os.Remove(sf.path)
		return nil, fmt.Errorf("track spool file: %w", err)
	}
	return sf, nil
}

// Name returns the path of the backing file.
func (s *File) Name() string { return s.path }

func (s *File) Write(p []byte) (int, error) { return s.f.Write(p) }

func (s *File) Read(p []byte) (int, error) { return s.f.Read(p) }

func (s *File) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

func (s *File) Sync() error { return s.f.Sync() }

// Close closes the underlying descriptor. It does not delete the backing
// file; that happens through the tracker once the File is unreachable.
func (s *File) Close() error { return s.f.Close() }
