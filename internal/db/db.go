package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Event type constants: session lifecycle
const (
	EventSessionStarted = "session.started"
	EventSessionClosed  = "session.closed"
	EventSummaryStored  = "summary.stored"
)

// Event type constants: per-turn events
const (
	EventTurnStarted       = "turn.started"
	EventIntentResolved    = "intent.resolved"
	EventToolCallDone      = "tool_call.completed"
	EventToolCallFailed    = "tool_call.failed"
	EventCompletionFailed  = "completion.failed"
	EventTopicsExtracted   = "topics.extracted"
	EventContextSaved      = "context.saved"
	EventContextSaveFailed = "context.save_failed"
	EventReplySent         = "reply.sent"
)

// OpenDB opens (or creates) a SQLite database at the given path, ensuring
// that the parent directory exists.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	return db, nil
}

// OpenReadOnly opens an existing journal for inspection.
func OpenReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", path+"?mode=ro&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}
	return db, nil
}

// InitSchema creates the events and turns tables.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			timestamp INTEGER NOT NULL DEFAULT (unixepoch()),
			parent_id INTEGER,
			event_type TEXT NOT NULL,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_parent_id ON events(parent_id);

		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id, id);
	`)
	return err
}

// NewSessionID returns a fresh identifier for one REPL or ask invocation.
func NewSessionID() string {
	return uuid.NewString()
}

// LogEvent inserts an event into the events table and returns its auto-generated id.
// parentID may be nil for root events. payload is serialized to JSON; nil payload stores NULL.
func LogEvent(db *sql.DB, parentID *int64, eventType string, payload map[string]any) (int64, error) {
	var payloadJSON any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal event payload: %w", err)
		}
		payloadJSON = string(data)
	}

	res, err := db.Exec(
		`INSERT INTO events (parent_id, event_type, payload) VALUES (?, ?, ?)`,
		parentID, eventType, payloadJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event %s: %w", eventType, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get event id: %w", err)
	}
	return id, nil
}

// AppendTurn stores one conversation turn for a session.
func AppendTurn(db *sql.DB, sessionID, role, text string) error {
	if sessionID == "" {
		return fmt.Errorf("append turn: session id is empty")
	}
	if _, err := db.Exec(
		`INSERT INTO turns (session_id, role, text) VALUES (?, ?, ?)`,
		sessionID, role, text,
	); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// CountTurns returns the number of stored turns for a session.
func CountTurns(db *sql.DB, sessionID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM turns WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// SessionRootID returns the session.started event for sessionID, or 0.
func SessionRootID(db *sql.DB, sessionID string) (int64, error) {
	var id int64
	err := db.QueryRow(
		`SELECT id FROM events WHERE event_type = ?
		 AND json_extract(payload, '$.session_id') = ?
		 ORDER BY id DESC LIMIT 1`,
		EventSessionStarted, sessionID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}
