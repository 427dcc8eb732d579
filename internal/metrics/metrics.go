package metrics

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Core synchronization primitives
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server

	triggerChannel chan struct{}
)

// Init initializes all metrics subsystems and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initTrackerMetrics()
		initSweepMetrics()

		registerTrackerMetrics()
		registerSweepMetrics()

		// Default values so the series appear in /metrics before the
		// first sweep runs
		SweepLastRunTimestamp.Set(0)
		RecordsPending.Set(0)

		triggerChannel = make(chan struct{}, 1)
	})
}

// TriggerChannel returns the channel the scheduler listens on for
// on-demand sweep requests from POST /trigger.
func TriggerChannel() <-chan struct{} {
	return triggerChannel
}

// StartServer starts the metrics HTTP server on the specified address
// Exposes /metrics (Prometheus), /health, and /trigger endpoints
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","healthy":true}`))
	})

	mux.HandleFunc("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if triggerChannel != nil {
			select {
			case triggerChannel <- struct{}{}:
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("Sweep triggered"))
			default:
				http.Error(w, "Trigger channel full", http.StatusServiceUnavailable)
			}
		} else {
			http.Error(w, "Trigger channel not initialized", http.StatusServiceUnavailable)
		}
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
			ErrorsTotal.Inc()
		}
	}()

	// Give server 100ms to start
	time.Sleep(100 * time.Millisecond)
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}
