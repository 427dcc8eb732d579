package sweep

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"temp-reaper/internal/config"
)

// Candidate is a filesystem entry eligible for sweeping
type Candidate struct {
	Path       string
	Size       int64
	IsDir      bool
	IsEmptyDir bool
	ModTime    time.Time
}

// Scan walks the spool roots and collects entries untouched for longer
// than the configured age-off. Regular files always qualify; directories
// qualify only when empty, so a sweep never tears down a tree that still
// has fresh files inside.
func Scan(cfg *config.Config, now time.Time) ([]Candidate, error) {
	return ScanWithLogger(cfg, now, nil)
}

func ScanWithLogger(cfg *config.Config, now time.Time, logger *log.Logger) ([]Candidate, error) {
	if logger == nil {
		logger = log.Default()
	}

	cutoff := now.Add(-cfg.AgeOff())
	var candidates []Candidate

	for _, root := range cfg.SpoolPaths {
		if _, err := os.Stat(root); err != nil {
			logger.Printf("skipping spool root %s: %v", root, err)
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Printf("walk error at %s: %v", path, err)
				return nil
			}
			if path == root {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				logger.Printf("stat error at %s: %v", path, err)
				return nil
			}
			if info.ModTime().After(cutoff) {
				return nil
			}

			if d.IsDir() {
				empty, err := isEmptyDir(path)
				if err != nil {
					logger.Printf("read error at %s: %v", path, err)
					return nil
				}
				if empty {
					candidates = append(candidates, Candidate{
						Path:       path,
						IsDir:      true,
						IsEmptyDir: true,
						ModTime:    info.ModTime(),
					})
				}
				return nil
			}

			candidates = append(candidates, Candidate{
				Path:    path,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
			return nil
		})
		if err != nil {
			logger.Printf("failed to walk %s: %v", root, err)
		}
	}

	return candidates, nil
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
