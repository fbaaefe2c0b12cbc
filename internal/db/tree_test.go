package db

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"
)

// seedSessionTree inserts a journal for one session and returns the root id.
//
// Tree structure:
//
//	session.started                id=1
//	├── turn.started               id=2
//	│   ├── intent.resolved        id=3
//	│   ├── tool_call.completed    id=4
//	│   └── reply.sent             id=5
//	├── turn.started               id=6
//	│   ├── completion.failed      id=7
//	│   └── reply.sent             id=8
//	└── session.closed             id=9
func seedSessionTree(t *testing.T, db *sql.DB) int64 {
	t.Helper()

	root, _ := LogEvent(db, nil, EventSessionStarted, map[string]any{"session_id": "s1"})
	turn1, _ := LogEvent(db, &root, EventTurnStarted, map[string]any{"utterance": "Quiz me on biology"})
	LogEvent(db, &turn1, EventIntentResolved, map[string]any{"tool": "quiz", "outcome": "matched"})
	LogEvent(db, &turn1, EventToolCallDone, map[string]any{"tool": "quiz", "latency_ms": 12})
	LogEvent(db, &turn1, EventReplySent, nil)
	turn2, _ := LogEvent(db, &root, EventTurnStarted, map[string]any{"utterance": "hello"})
	LogEvent(db, &turn2, EventCompletionFailed, map[string]any{"timeout": true})
	LogEvent(db, &turn2, EventReplySent, nil)
	LogEvent(db, &root, EventSessionClosed, nil)
	return root
}

func TestLatestSessionRoot(t *testing.T) {
	db := testDB(t)
	if _, err := LatestSessionRoot(db); err == nil {
		t.Fatal("expected error for empty database")
	}
	root := seedSessionTree(t, db)
	got, err := LatestSessionRoot(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != root {
		t.Errorf("expected root id=%d, got %d", root, got)
	}
}

func TestQuerySubtreeAndBuildTree(t *testing.T) {
	db := testDB(t)
	root := seedSessionTree(t, db)

	events, err := QuerySubtree(db, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 9 {
		t.Fatalf("expected 9 events, got %d", len(events))
	}

	tree := BuildTree(events, root)
	if tree == nil {
		t.Fatal("root is nil")
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 root children, got %d", len(tree.Children))
	}
	if len(tree.Children[0].Children) != 3 {
		t.Errorf("expected 3 events under the first turn, got %d", len(tree.Children[0].Children))
	}

	sub, err := QuerySubtree(db, tree.Children[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sub) != 3 {
		t.Errorf("expected 3 events in second turn subtree, got %d", len(sub))
	}
}

func TestWriteTree(t *testing.T) {
	db := testDB(t)
	root := seedSessionTree(t, db)
	events, _ := QuerySubtree(db, root)
	tree := BuildTree(events, root)

	var buf bytes.Buffer
	WriteTree(&buf, tree, TreeOptions{})
	out := buf.String()
	for _, want := range []string{"session.started", "intent.resolved", "tool=quiz", "├──", "│   ", "└── "} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	WriteTree(&buf, tree, TreeOptions{MaxDepth: 2, NoPayload: true})
	out = buf.String()
	if strings.Contains(out, "intent.resolved") {
		t.Errorf("intent.resolved should be hidden at depth 2:\n%s", out)
	}
	if !strings.Contains(out, "[...]") {
		t.Errorf("expected [...] for truncated nodes:\n%s", out)
	}
	if strings.Contains(out, "session_id=") {
		t.Errorf("payload should be hidden:\n%s", out)
	}
}

func TestToJSONEvent(t *testing.T) {
	db := testDB(t)
	root := seedSessionTree(t, db)
	events, _ := QuerySubtree(db, root)
	tree := BuildTree(events, root)

	je := ToJSONEvent(tree, TreeOptions{MaxDepth: 2})
	if je.EventType != EventSessionStarted {
		t.Errorf("expected %s, got %s", EventSessionStarted, je.EventType)
	}
	if len(je.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(je.Children))
	}
	if len(je.Children[0].Children) != 0 {
		t.Errorf("depth limit should drop grandchildren, got %d", len(je.Children[0].Children))
	}
}

func TestFormatValueTruncatesLongText(t *testing.T) {
	long := strings.Repeat("é", 100)
	got := formatValue(long)
	if !strings.HasSuffix(got, `..."`) {
		t.Errorf("expected quoted truncated value, got %s", got)
	}
	if formatValue(float64(3)) != "3" || formatValue(1.5) != "1.5" {
		t.Errorf("unexpected number formatting")
	}
}
