package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// HistoryDB manages the SQLite database for reap history
type HistoryDB struct {
	db *sql.DB
}

// Event represents a single reap outcome
type Event struct {
	ID           int64
	Timestamp    time.Time
	Action       string // DELETE, ERROR, SKIP or DRY_RUN
	Path         string
	ObjectType   string // file or directory
	Size         int64
	Strategy     string
	ErrorMessage string
	CreatedAt    time.Time
}

// NewHistoryDB creates a new database connection and initializes the schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Exercise the connection so the database file is created if missing
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL mode for better concurrency (multiple readers, one writer)
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}

	// Clear the deferred error handler since we succeeded
	err = nil
	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reap_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		strategy TEXT,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reap_events_timestamp ON reap_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_reap_events_action ON reap_events(action);
	CREATE INDEX IF NOT EXISTS idx_reap_events_path ON reap_events(path);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordEvent persists one reap outcome. The Timestamp and CreatedAt
// fields of ev are filled in here.
func (d *HistoryDB) RecordEvent(ev Event) error {
	_, err := d.db.Exec(`
		INSERT INTO reap_events (timestamp, action, path, object_type, size, strategy, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), ev.Action, ev.Path, ev.ObjectType, ev.Size, ev.Strategy, ev.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *HistoryDB) Close() error {
	return d.db.Close()
}

// Vacuum reclaims space from deleted records
func (d *HistoryDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
