package database

import (
	"fmt"
	"time"
)

// GetRecentEvents returns the most recent reap events, newest first
func (d *HistoryDB) GetRecentEvents(limit int) ([]Event, error) {
	return d.queryEvents(`
		SELECT id, timestamp, action, path, object_type, size, strategy, error_message, created_at
		FROM reap_events ORDER BY timestamp DESC LIMIT ?`, limit)
}

// GetEventsByAction returns events filtered by action (DELETE, ERROR, SKIP, DRY_RUN)
func (d *HistoryDB) GetEventsByAction(action string) ([]Event, error) {
	return d.queryEvents(`
		SELECT id, timestamp, action, path, object_type, size, strategy, error_message, created_at
		FROM reap_events WHERE action = ? ORDER BY timestamp DESC`, action)
}

// GetEventsByPath returns events whose path matches pattern (SQL LIKE syntax)
func (d *HistoryDB) GetEventsByPath(pattern string) ([]Event, error) {
	return d.queryEvents(`
		SELECT id, timestamp, action, path, object_type, size, strategy, error_message, created_at
		FROM reap_events WHERE path LIKE ? ORDER BY timestamp DESC`, pattern)
}

// GetFailures returns the paths of the most recent failed deletions
func (d *HistoryDB) GetFailures(limit int) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT path FROM reap_events WHERE action = 'ERROR'
		ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan failure row: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Stats summarizes reap history over a period
type Stats struct {
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	TotalEvents    int            `json:"total_events"`
	CountByAction  map[string]int `json:"count_by_action"`
	BytesFreed     int64          `json:"bytes_freed"`
	FailedAttempts int            `json:"failed_attempts"`
}

// GetStats returns aggregate statistics for the last N days
func (d *HistoryDB) GetStats(days int) (*Stats, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	stats := &Stats{
		StartDate:     start,
		EndDate:       end,
		CountByAction: make(map[string]int),
	}

	rows, err := d.db.Query(`
		SELECT action, COUNT(*), COALESCE(SUM(size), 0)
		FROM reap_events WHERE timestamp BETWEEN ? AND ?
		GROUP BY action`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		var size int64
		if err := rows.Scan(&action, &count, &size); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.CountByAction[action] = count
		stats.TotalEvents += count
		if action == "DELETE" {
			stats.BytesFreed += size
		}
		if action == "ERROR" {
			stats.FailedAttempts += count
		}
	}
	return stats, rows.Err()
}

// DeleteOldRecords removes events older than the given number of days and
// returns how many were deleted
func (d *HistoryDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := d.db.Exec(`DELETE FROM reap_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}
	return res.RowsAffected()
}

func (d *HistoryDB) queryEvents(query string, args ...interface{}) ([]Event, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Action, &ev.Path, &ev.ObjectType,
			&ev.Size, &ev.Strategy, &ev.ErrorMessage, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
