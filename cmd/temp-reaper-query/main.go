package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"temp-reaper/internal/database"
	"temp-reaper/internal/exitcodes"
)

func main() {
	// Parse command-line flags
	dbPath := flag.String("db", "/var/lib/temp-reaper/history.db", "Path to reap history database")
	recent := flag.Int("recent", 0, "Show N most recent events")
	stats := flag.Bool("stats", false, "Show reap statistics")
	action := flag.String("action", "", "Filter by action (DELETE, ERROR, SKIP, DRY_RUN)")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	failures := flag.Int("failures", 0, "Show N most recent failed deletions")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	// Open database
	db, err := database.NewHistoryDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	// Handle different query modes
	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		showEvents(db, *jsonOutput, func() ([]database.Event, error) {
			return db.GetRecentEvents(*recent)
		})
	case *action != "":
		showEvents(db, *jsonOutput, func() ([]database.Event, error) {
			return db.GetEventsByAction(*action)
		})
	case *pathPattern != "":
		showEvents(db, *jsonOutput, func() ([]database.Event, error) {
			return db.GetEventsByPath(*pathPattern)
		})
	case *failures > 0:
		showFailures(db, *failures, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  temp-reaper-query --recent 10          # Show 10 most recent events")
		fmt.Println("  temp-reaper-query --stats              # Show reap statistics")
		fmt.Println("  temp-reaper-query --action ERROR       # Show failed deletions")
		fmt.Println("  temp-reaper-query --path '/data/%'     # Show events under /data")
		fmt.Println("  temp-reaper-query --failures 10        # Show 10 most recent failure paths")
		os.Exit(exitcodes.InvalidConfig)
	}
}

func showStats(db *database.HistoryDB, days int, jsonOutput bool) {
	stats, err := db.GetStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Reap Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Events:    %d\n", stats.TotalEvents)
	fmt.Printf("Bytes Freed:     %d\n", stats.BytesFreed)
	fmt.Printf("Failed Attempts: %d\n\n", stats.FailedAttempts)
	for action, count := range stats.CountByAction {
		fmt.Printf("  %-8s %d\n", action, count)
	}
}

func showEvents(db *database.HistoryDB, jsonOutput bool, query func() ([]database.Event, error)) {
	events, err := query()
	if err != nil {
		log.Fatalf("ERROR: Failed to query events: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(events, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tPATH\tTYPE\tSIZE\tSTRATEGY\tERROR")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			ev.Action, ev.Path, ev.ObjectType, ev.Size, ev.Strategy, ev.ErrorMessage)
	}
	w.Flush()
}

func showFailures(db *database.HistoryDB, limit int, jsonOutput bool) {
	paths, err := db.GetFailures(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to query failures: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(paths, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, p := range paths {
		fmt.Println(p)
	}
}
