// Package statelog persists observed device states to a local SQLite
// database.
//
// Each recorded entry stores a full JSON snapshot of the state at the
// time it was observed, giving deyectl monitor a local audit trail that
// survives restarts. The database is created on first open; no external
// migration step is needed.
package statelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/deye-community/go-deye/device"
)

const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// busyTimeout is the maximum time to wait for a database lock.
	busyTimeout = 5 * time.Second

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute

	// defaultRecentLimit is the number of entries Recent returns when no
	// limit is given.
	defaultRecentLimit = 50

	// maxRecentLimit caps the number of entries a single Recent call
	// can return.
	maxRecentLimit = 200
)

// schema is applied on every Open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS state_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT NOT NULL,
	state TEXT NOT NULL,
	recorded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
) STRICT;
CREATE INDEX IF NOT EXISTS idx_state_log_device ON state_log(device_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_state_log_time ON state_log(recorded_at DESC);
`

// Entry is a single recorded state snapshot.
type Entry struct {
	// ID is the auto-incremented primary key for the row.
	ID int64 `json:"id"`

	// DeviceID is the unique identifier of the device.
	DeviceID string `json:"device_id"`

	// State is the snapshot as it was observed.
	State device.State `json:"state"`

	// RecordedAt is the timestamp of the observation (UTC).
	RecordedAt time.Time `json:"recorded_at"`
}

// Log is a SQLite-backed state recorder.
//
// It is safe for concurrent use; the underlying pool is limited to a
// single connection because SQLite supports only one writer.
type Log struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the state log database at path.
//
// It creates the parent directory, applies WAL mode and a busy timeout,
// ensures the schema exists, and restricts the file to owner
// read/write.
//
// Parameters:
//   - path: Filesystem path to the SQLite database file
//
// Returns:
//   - *Log: Recorder ready for use
//   - error: If the directory, connection, or schema setup fails
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating state log directory: %w", err)
	}

	// Connection string pragmas, see:
	// https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL",
		path,
		busyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening state log: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying state log connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating state log schema: %w", err)
	}

	// Owner read/write only; the schema exec above created the file.
	_ = os.Chmod(path, filePermissions) //nolint:errcheck // Intentional: permissions are best effort

	return &Log{db: db, path: path}, nil
}

// Record appends a state snapshot for a device.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Unique device identifier
//   - state: State snapshot to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (l *Log) Record(ctx context.Context, deviceID string, state *device.State) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if state == nil {
		return fmt.Errorf("state is required")
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		"INSERT INTO state_log (device_id, state) VALUES (?, ?)",
		deviceID,
		string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting state log entry: %w", err)
	}

	return nil
}

// Recent returns recent entries for a device, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Unique device identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Entries ordered by recorded_at descending
//   - error: nil on success, otherwise the underlying query error
func (l *Log) Recent(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	// The id tiebreak keeps ordering stable when several snapshots land
	// within the same second.
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, device_id, state, recorded_at
		 FROM state_log
		 WHERE device_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state log: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var stateJSON string
		var recordedAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &stateJSON, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning state log entry: %w", err)
		}

		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}

		timestamp, err := parseRecordedAt(recordedAt)
		if err != nil {
			return nil, err
		}
		entry.RecordedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state log: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan
//     are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (l *Log) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := l.db.ExecContext(ctx,
		"DELETE FROM state_log WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state log entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("closing state log: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (l *Log) Path() string {
	return l.path
}

// parseRecordedAt parses a timestamp stored in SQLite.
//
// The schema default writes RFC 3339; the fallback accepts SQLite's
// CURRENT_TIMESTAMP format for rows inserted by hand.
func parseRecordedAt(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("recorded_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02 15:04:05", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing recorded_at: %w", err)
}
