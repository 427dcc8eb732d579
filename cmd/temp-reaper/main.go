package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"temp-reaper/internal/config"
	"temp-reaper/internal/database"
	"temp-reaper/internal/exitcodes"
	"temp-reaper/internal/logging"
	"temp-reaper/internal/metrics"
	"temp-reaper/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "/etc/temp-reaper/config.yaml", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Perform dry run without deleting files")
	once := flag.Bool("once", false, "Run one sweep and exit (no loop)")
	flag.Parse()

	// Initialize logger
	logger := logging.New()

	logger.Println("Temp Reaper Daemon Starting...")
	logger.Printf("Config file: %s", *configPath)
	if *dryRun {
		logger.Println("DRY RUN MODE: No files will be deleted")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("ERROR: Failed to load config: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}

	// Initialize metrics (Prometheus)
	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
	}

	// Initialize database for reap history
	var db *database.HistoryDB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening history database: %s", cfg.DatabasePath)
		db, err = database.NewHistoryDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	// Run scheduler
	logger.Println("Starting sweep scheduler...")
	if *once {
		if err := scheduler.RunOnceWithDB(ctx, cfg, *dryRun, logger, db); err != nil {
			logger.Printf("ERROR: Sweep failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		logger.Println("Sweep completed successfully")
	} else {
		if err := scheduler.RunWithDB(ctx, cfg, *dryRun, logger, db); err != nil && err != context.Canceled {
			logger.Printf("ERROR: Scheduler failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
	}

	logger.Println("Temp Reaper Daemon stopped")
}
