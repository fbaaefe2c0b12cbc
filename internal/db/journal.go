package db

import (
	"database/sql"

	"go.uber.org/zap"
)

// Journal records one session's events and turns. Writes are best effort:
// failures are logged and never reach the conversation. A nil *Journal is
// valid and records nothing.
type Journal struct {
	db        *sql.DB
	sessionID string
	rootID    int64
	logger    *zap.Logger
}

// StartJournal logs session.started and returns a journal bound to it.
func StartJournal(database *sql.DB, sessionID string, meta map[string]any, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	payload := map[string]any{"session_id": sessionID}
	for k, v := range meta {
		payload[k] = v
	}
	j := &Journal{db: database, sessionID: sessionID, logger: logger}
	id, err := LogEvent(database, nil, EventSessionStarted, payload)
	if err != nil {
		logger.Warn("journal: failed to record session start", zap.Error(err))
	}
	j.rootID = id
	return j
}

func (j *Journal) SessionID() string {
	if j == nil {
		return ""
	}
	return j.sessionID
}

// Event records eventType under parent, or under the session root when
// parent is 0. It returns the new event id, or 0 on failure.
func (j *Journal) Event(parent int64, eventType string, payload map[string]any) int64 {
	if j == nil {
		return 0
	}
	if parent == 0 {
		parent = j.rootID
	}
	var parentID *int64
	if parent != 0 {
		parentID = &parent
	}
	id, err := LogEvent(j.db, parentID, eventType, payload)
	if err != nil {
		j.logger.Warn("journal: failed to record event", zap.String("event", eventType), zap.Error(err))
		return 0
	}
	return id
}

// Turn stores a conversation turn.
func (j *Journal) Turn(role, text string) {
	if j == nil {
		return
	}
	if err := AppendTurn(j.db, j.sessionID, role, text); err != nil {
		j.logger.Warn("journal: failed to record turn", zap.String("role", role), zap.Error(err))
	}
}

// Close records session.closed. The database stays open.
func (j *Journal) Close(payload map[string]any) {
	j.Event(0, EventSessionClosed, payload)
}
