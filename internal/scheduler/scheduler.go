package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"temp-reaper/fsops"
	"temp-reaper/internal/config"
	"temp-reaper/internal/database"
	"temp-reaper/internal/disk"
	"temp-reaper/internal/limiter"
	"temp-reaper/internal/metrics"
	"temp-reaper/internal/safety"
	"temp-reaper/internal/sweep"
)

func RunOnce(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger) error {
	return RunOnceWithDB(ctx, cfg, dryRun, logger, nil)
}

func RunOnceWithDB(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger, db *database.HistoryDB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	start := time.Now()

	metrics.RecordSweepRun()
	updateFreeSpaceMetrics(cfg, logger)

	candidates, err := sweep.ScanWithLogger(cfg, start, logger)
	if err != nil {
		metrics.ErrorsTotal.Inc()
		return err
	}

	var strategy fsops.Strategy = fsops.Normal{}
	if cfg.Recursive {
		strategy = fsops.Force{}
	}

	sweeper := sweep.NewSweeper(logger, strategy, safety.NewValidator(cfg.SpoolPaths, nil), db, dryRun)
	if cfg.MaxCPUPercent > 0 {
		sweeper.SetLimiter(limiter.NewCPULimiter(cfg.MaxCPUPercent))
	}

	count, freed, err := sweeper.Sweep(cfg, candidates)
	if err != nil {
		metrics.ErrorsTotal.Inc()
		return err
	}

	elapsed := time.Since(start).Seconds()
	metrics.SweepDuration.Observe(elapsed)

	logger.Printf("cycle complete: candidates=%d deleted=%d freed=%d bytes duration=%.3fs", len(candidates), count, freed, elapsed)
	return nil
}

func Run(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger) error {
	return RunWithDB(ctx, cfg, dryRun, logger, nil)
}

// RunWithDB sweeps once immediately, then on every tick of the configured
// interval and every request on the metrics trigger channel, until ctx is
// canceled.
func RunWithDB(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger, db *database.HistoryDB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	if err := RunOnceWithDB(ctx, cfg, dryRun, logger, db); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := RunOnceWithDB(ctx, cfg, dryRun, logger, db); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		case <-metrics.TriggerChannel():
			logger.Println("sweep triggered on demand")
			if err := RunOnceWithDB(ctx, cfg, dryRun, logger, db); err != nil {
				logger.Printf("error running triggered cycle: %v", err)
			}
		}
	}
}

// updateFreeSpaceMetrics refreshes the free space gauge for every spool root
func updateFreeSpaceMetrics(cfg *config.Config, logger *log.Logger) {
	for _, root := range cfg.SpoolPaths {
		freePercent, err := disk.GetFreePercent(root)
		if err != nil {
			logger.Printf("failed to get disk usage for %s: %v", root, err)
			continue
		}
		metrics.UpdateFreeSpacePercent(root, freePercent)
	}
}
