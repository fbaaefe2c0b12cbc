package db

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatal(err)
	}
	if err := InitSchema(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitSchema(t *testing.T) {
	db := testDB(t)

	tables := map[string]bool{}
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('events','turns')`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatal(err)
		}
		tables[name] = true
	}

	for _, want := range []string{"events", "turns"} {
		if !tables[want] {
			t.Errorf("table %q not created", want)
		}
	}

	// Idempotent on reopen.
	if err := InitSchema(db); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}
}

func TestLogEvent_Basic(t *testing.T) {
	db := testDB(t)

	id1, err := LogEvent(db, nil, EventSessionStarted, map[string]any{"session_id": "s1", "offline": true})
	if err != nil {
		t.Fatal(err)
	}
	if id1 <= 0 {
		t.Errorf("expected positive id, got %d", id1)
	}

	id2, err := LogEvent(db, nil, EventTurnStarted, map[string]any{"utterance": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Errorf("expected id2 > id1, got %d <= %d", id2, id1)
	}

	var ts int64
	if err := db.QueryRow(`SELECT timestamp FROM events WHERE id = ?`, id1).Scan(&ts); err != nil {
		t.Fatal(err)
	}
	if ts == 0 {
		t.Error("expected non-zero timestamp")
	}

	var payloadStr string
	if err := db.QueryRow(`SELECT payload FROM events WHERE id = ?`, id1).Scan(&payloadStr); err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
		t.Fatalf("invalid payload JSON: %v", err)
	}
	if payload["session_id"] != "s1" {
		t.Errorf("expected session_id=s1, got %v", payload["session_id"])
	}
}

func TestLogEvent_WithParent(t *testing.T) {
	db := testDB(t)

	parentID, err := LogEvent(db, nil, EventSessionStarted, map[string]any{"session_id": "s1"})
	if err != nil {
		t.Fatal(err)
	}
	childID, err := LogEvent(db, &parentID, EventTurnStarted, nil)
	if err != nil {
		t.Fatal(err)
	}

	var storedParent int64
	if err := db.QueryRow(`SELECT parent_id FROM events WHERE id = ?`, childID).Scan(&storedParent); err != nil {
		t.Fatal(err)
	}
	if storedParent != parentID {
		t.Errorf("expected parent_id=%d, got %d", parentID, storedParent)
	}

	var nullParent sql.NullInt64
	if err := db.QueryRow(`SELECT parent_id FROM events WHERE id = ?`, parentID).Scan(&nullParent); err != nil {
		t.Fatal(err)
	}
	if nullParent.Valid {
		t.Errorf("expected NULL parent_id for root event, got %d", nullParent.Int64)
	}
}

func TestLogEvent_NilPayload(t *testing.T) {
	db := testDB(t)

	id, err := LogEvent(db, nil, EventSessionClosed, nil)
	if err != nil {
		t.Fatal(err)
	}
	var payload sql.NullString
	if err := db.QueryRow(`SELECT payload FROM events WHERE id = ?`, id).Scan(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Valid {
		t.Errorf("expected NULL payload, got %q", payload.String)
	}
}

func TestAppendTurnAndCount(t *testing.T) {
	db := testDB(t)
	a, b := NewSessionID(), NewSessionID()
	if a == b {
		t.Fatal("session ids must differ")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("session id is not a uuid: %v", err)
	}

	for _, role := range []string{"user", "assistant", "user"} {
		if err := AppendTurn(db, a, role, "text"); err != nil {
			t.Fatal(err)
		}
	}
	if err := AppendTurn(db, b, "user", "other"); err != nil {
		t.Fatal(err)
	}

	n, err := CountTurns(db, a)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 turns for session a, got %d", n)
	}
	if err := AppendTurn(db, "", "user", "x"); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestSessionRootID(t *testing.T) {
	db := testDB(t)

	id, err := SessionRootID(db, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Errorf("expected 0 for unknown session, got %d", id)
	}

	want, _ := LogEvent(db, nil, EventSessionStarted, map[string]any{"session_id": "abc"})
	LogEvent(db, nil, EventSessionStarted, map[string]any{"session_id": "def"})
	got, err := SessionRootID(db, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("expected root %d, got %d", want, got)
	}
}

func TestOpenReadOnly_Missing(t *testing.T) {
	if _, err := OpenReadOnly(t.TempDir() + "/nope.db"); err == nil {
		t.Fatal("expected error for missing journal")
	}
}
