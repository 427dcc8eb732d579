package sweep

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"temp-reaper/fsops"
	"temp-reaper/internal/config"
	"temp-reaper/internal/database"
	"temp-reaper/internal/limiter"
	"temp-reaper/internal/metrics"
	"temp-reaper/internal/safety"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepLogger interface for structured logging in sweeps
type SweepLogger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// sweepStdLogger wraps standard log.Logger to implement SweepLogger
type sweepStdLogger struct {
	*log.Logger
}

func (l *sweepStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *sweepStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *sweepStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics interface for sweep metrics
type Metrics interface {
	FilesSweptTotal() prometheus.Counter
	BytesFreedTotal() prometheus.Counter
	ErrorsTotal() prometheus.Counter
}

// sweepMetrics wraps global metrics to implement the Metrics interface
type sweepMetrics struct{}

func (m *sweepMetrics) FilesSweptTotal() prometheus.Counter { return metrics.FilesSweptTotal }
func (m *sweepMetrics) BytesFreedTotal() prometheus.Counter { return metrics.BytesFreedTotal }
func (m *sweepMetrics) ErrorsTotal() prometheus.Counter     { return metrics.ErrorsTotal }

// Sweeper deletes orphaned spool entries with safety validation,
// structured logging and history recording
type Sweeper struct {
	logger    SweepLogger
	metrics   Metrics
	strategy  fsops.Strategy
	validator *safety.Validator
	db        *database.HistoryDB
	limiter   *limiter.CPULimiter
	dryRun    bool
}

// NewSweeper creates a Sweeper. db may be nil to skip history recording.
func NewSweeper(logger *log.Logger, strategy fsops.Strategy, validator *safety.Validator, db *database.HistoryDB, dryRun bool) *Sweeper {
	sweepLogger := &sweepStdLogger{Logger: logger}
	if logger == nil {
		sweepLogger.Logger = log.Default()
	}
	if strategy == nil {
		strategy = fsops.Normal{}
	}
	return &Sweeper{
		logger:    sweepLogger,
		metrics:   &sweepMetrics{},
		strategy:  strategy,
		validator: validator,
		db:        db,
		dryRun:    dryRun,
	}
}

// SetStrategy replaces the delete strategy (used by tests)
func (s *Sweeper) SetStrategy(strategy fsops.Strategy) {
	s.strategy = strategy
}

// SetLimiter enables CPU pacing between candidates
func (s *Sweeper) SetLimiter(l *limiter.CPULimiter) {
	s.limiter = l
}

// Sweep removes candidates with proper error handling and logging.
// Returns the number of entries deleted and the bytes freed.
func (s *Sweeper) Sweep(cfg *config.Config, candidates []Candidate) (int, int64, error) {
	s.logger.Info("Starting sweep", "total_candidates", len(candidates))

	var bytesFreed int64
	successCount := 0
	errorCount := 0

	for _, cand := range candidates {
		if s.limiter != nil {
			s.limiter.Throttle()
		}

		if s.validator != nil {
			if err := s.validator.ValidateDeleteTarget(cand.Path); err != nil {
				s.logStructured("SKIP", cand, err.Error())
				s.recordEvent("SKIP", cand, err.Error())
				s.metrics.ErrorsTotal().Inc()
				errorCount++
				continue
			}
		}

		if s.dryRun {
			s.logStructured("DRY_RUN", cand, "")
			s.recordEvent("DRY_RUN", cand, "")
			continue
		}

		if !s.strategy.AttemptDelete(cand.Path) {
			// Another sweep or the in-process tracker may have beaten us
			// to it; a vanished path is not an error.
			if _, err := os.Stat(cand.Path); os.IsNotExist(err) {
				s.logger.Info("Entry already deleted", "path", cand.Path)
				continue
			}

			s.logger.Error("Failed to delete", "path", cand.Path, "strategy", s.strategy.String())
			s.logStructured("ERROR", cand, "")
			s.recordEvent("ERROR", cand, "delete failed")
			s.metrics.ErrorsTotal().Inc()
			errorCount++
			continue
		}

		s.logStructured("DELETE", cand, "")
		s.recordEvent("DELETE", cand, "")

		bytesFreed += cand.Size
		successCount++

		s.metrics.FilesSweptTotal().Inc()
		s.metrics.BytesFreedTotal().Add(float64(cand.Size))
		metrics.RecordPathSweep(rootFor(cfg, cand.Path), cand.Size)
	}

	s.logger.Info("Sweep complete",
		"success", successCount,
		"errors", errorCount,
		"bytes_freed", bytesFreed,
	)

	return successCount, bytesFreed, nil
}

func (s *Sweeper) recordEvent(action string, cand Candidate, errMsg string) {
	if s.db == nil {
		return
	}
	ev := database.Event{
		Action:     action,
		Path:       cand.Path,
		ObjectType: objectType(cand),
		Size:       cand.Size,
		Strategy:   s.strategy.String(),
	}
	ev.ErrorMessage = errMsg
	if err := s.db.RecordEvent(ev); err != nil {
		// History is best effort; a failed write never aborts the sweep.
		s.logger.Error("Failed to record history", "error", err)
	}
}

// logStructured logs with structured format: timestamp, action, path, object type, size
func (s *Sweeper) logStructured(action string, cand Candidate, detail string) {
	logEntry := fmt.Sprintf("[%s] %s path=%s object=%s size=%d",
		time.Now().UTC().Format(time.RFC3339),
		action,
		cand.Path,
		objectType(cand),
		cand.Size,
	)
	if detail != "" {
		escaped := strings.ReplaceAll(detail, `"`, `\"`)
		logEntry += fmt.Sprintf(` detail="%s"`, escaped)
	}
	s.logger.Info(logEntry)
}

func objectType(cand Candidate) string {
	switch {
	case cand.IsEmptyDir:
		return "empty_directory"
	case cand.IsDir:
		return "directory"
	default:
		return "file"
	}
}

// rootFor maps a candidate back to its configured spool root for the
// per-root metric label
func rootFor(cfg *config.Config, path string) string {
	cleaned := filepath.Clean(path)
	for _, root := range cfg.SpoolPaths {
		if cleaned == root || strings.HasPrefix(cleaned, root+string(os.PathSeparator)) {
			return root
		}
	}
	return "unknown"
}
