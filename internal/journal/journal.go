package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// recordTimeout bounds a single journal insert so a slow disk cannot
	// back-pressure the session read loop.
	recordTimeout = 2 * time.Second
)

// schema is the event journal table. One row per frame, either direction.
const schema = `
CREATE TABLE IF NOT EXISTS frames (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	workflow       TEXT NOT NULL,
	direction      TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	correlation_id TEXT NOT NULL DEFAULT '',
	payload        BLOB NOT NULL,
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_frames_session ON frames(session_id, id);
`

// Config contains journal database options. These map to the journal section
// of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Entry is one journalled frame.
type Entry struct {
	SessionID     string
	Workflow      string
	Direction     string
	EventType     string
	CorrelationID string
	Payload       []byte
	CreatedAt     time.Time
}

// Logger receives diagnostics for write failures. Journalling is best-effort;
// a failed insert is logged, never surfaced to the session.
type Logger interface {
	Debug(msg string, args ...any)
}

// Journal persists every frame that crosses a session, for audit and replay.
// It implements the session tap interface.
type Journal struct {
	db     *sql.DB
	logger Logger
}

// Open creates (or reopens) the journal database at cfg.Path.
//
// The parent directory is created if missing, pragmas are applied through the
// DSN, the schema is ensured, and the connection is verified with a ping.
func Open(cfg Config) (*Journal, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying journal connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("ensuring journal schema: %w", err)
	}

	// Owner read/write only; ignore error, first run creates the file later
	_ = os.Chmod(cfg.Path, filePermissions)

	return &Journal{db: db}, nil
}

// SetLogger attaches a logger for best-effort write diagnostics.
func (j *Journal) SetLogger(l Logger) {
	j.logger = l
}

// Record inserts one entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO frames (session_id, workflow, direction, event_type, correlation_id, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Workflow, e.Direction, e.EventType, e.CorrelationID, e.Payload,
	)
	if err != nil {
		return fmt.Errorf("recording frame: %w", err)
	}
	return nil
}

// Frame implements the session tap. It must not block the read loop, so the
// insert runs with its own deadline and failures are only logged.
func (j *Journal) Frame(sessionID, workflow, direction, eventType, correlationID string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := j.Record(ctx, Entry{
		SessionID:     sessionID,
		Workflow:      workflow,
		Direction:     direction,
		EventType:     eventType,
		CorrelationID: correlationID,
		Payload:       payload,
	})
	if err != nil && j.logger != nil {
		j.logger.Debug("journal write failed", "session_id", sessionID, "error", err)
	}
}

// BySession returns entries for a session in arrival order. A limit of zero or
// less returns everything.
func (j *Journal) BySession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT session_id, workflow, direction, event_type, correlation_id, payload, created_at
		 FROM frames WHERE session_id = ? ORDER BY id LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.SessionID, &e.Workflow, &e.Direction,
			&e.EventType, &e.CorrelationID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frames: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
