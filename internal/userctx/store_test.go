package userctx

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T, path string, limit int) *Store {
	t.Helper()
	return NewStore(Options{Path: path, TopicLimit: limit, Now: fixedClock()})
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "ctx.json"), 0)
	require.NoError(t, s.Load())

	snap := s.Snapshot()
	assert.Empty(t, snap.Profile)
	assert.Empty(t, snap.Preferences)
	assert.Empty(t, snap.ImportantTopics)
	assert.Equal(t, "", s.GetProfileField("name"))
	assert.False(t, s.Dirty())
}

func TestAddTopicDedupIgnoresCase(t *testing.T) {
	s := newTestStore(t, "", 0)
	assert.True(t, s.AddTopic("Python"))
	assert.False(t, s.AddTopic("python"))
	assert.False(t, s.AddTopic("  PYTHON "))
	assert.False(t, s.AddTopic("   "))
	assert.Equal(t, []string{"Python"}, s.Topics())
}

func TestAddTopicEvictsOldest(t *testing.T) {
	s := newTestStore(t, "", 3)
	for _, topic := range []string{"a", "b", "c", "d", "e"} {
		s.AddTopic(topic)
	}
	assert.Equal(t, []string{"c", "d", "e"}, s.Topics())
}

func TestTopicsBoundedAtDefaultLimit(t *testing.T) {
	s := newTestStore(t, "", 0)
	for i := 0; i < 30; i++ {
		s.AddTopic(strings.Repeat("t", i+1))
	}
	topics := s.Topics()
	require.Len(t, topics, DefaultTopicLimit)
	assert.Equal(t, strings.Repeat("t", 11), topics[0])
}

func TestMutationsBumpLastUpdatedAndDirty(t *testing.T) {
	s := newTestStore(t, "", 0)
	before := s.Snapshot().LastUpdated
	require.NoError(t, s.SetProfileField("name", "Ada"))
	after := s.Snapshot().LastUpdated
	assert.True(t, after.After(before))
	assert.True(t, s.Dirty())

	require.NoError(t, s.Save())
	assert.False(t, s.Dirty())
}

func TestEmptyKeysRejected(t *testing.T) {
	s := newTestStore(t, "", 0)
	assert.Error(t, s.SetProfileField(" ", "x"))
	assert.Error(t, s.SetPreference("", "x"))
	assert.False(t, s.Dirty())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ctx.json")
	s := newTestStore(t, path, 0)
	require.NoError(t, s.SetProfileField("name", "Ada"))
	require.NoError(t, s.SetProfileField("study_level", "undergraduate"))
	require.NoError(t, s.SetPreference("style", "examples first"))
	s.AddTopic("photosynthesis")
	s.AddTopic("derivatives")
	s.SetSessionSummary("Covered limits and chain rule.")
	require.NoError(t, s.Save())

	reloaded := newTestStore(t, path, 0)
	require.NoError(t, reloaded.Load())
	if diff := cmp.Diff(s.Snapshot(), reloaded.Snapshot()); diff != "" {
		t.Fatalf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, filepath.Join(dir, "ctx.json"), 0)
	s.AddTopic("algebra")
	require.NoError(t, s.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ctx.json", entries[0].Name())
}

func TestLoadCorruptFileBacksUpAndUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	core, logs := observer.New(zap.WarnLevel)
	s := NewStore(Options{Path: path, Logger: zap.New(core), Now: fixedClock()})
	err := s.Load()

	var corrupt *PersistenceCorruptError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, path, corrupt.Path)
	require.NotEmpty(t, corrupt.Backup)
	backup, readErr := os.ReadFile(corrupt.Backup)
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(backup))

	assert.Empty(t, s.Snapshot().Profile)
	assert.Equal(t, 1, logs.FilterMessage("persisted context is corrupt; using defaults").Len())

	// The store keeps working after recovery.
	require.NoError(t, s.SetProfileField("name", "Ada"))
	require.NoError(t, s.Save())
}

func TestLoadWrongFieldTypeIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"important_topics": "not a list"}`), 0o600))
	s := newTestStore(t, path, 0)

	var corrupt *PersistenceCorruptError
	assert.ErrorAs(t, s.Load(), &corrupt)
	assert.Empty(t, s.Topics())
}

func TestUnknownFieldsSurviveSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.json")
	doc := `{
  "profile": {"name": "Ada"},
  "preferences": {},
  "important_topics": ["Python"],
  "flashcards": [{"front": "H2O", "back": "water"}],
  "schema_version": 3
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s := newTestStore(t, path, 0)
	require.NoError(t, s.Load())
	s.AddTopic("chemistry")
	require.NoError(t, s.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.JSONEq(t, `[{"front": "H2O", "back": "water"}]`, string(out["flashcards"]))
	assert.JSONEq(t, `3`, string(out["schema_version"]))
	assert.JSONEq(t, `["Python", "chemistry"]`, string(out["important_topics"]))
}

func TestLoadMigratesLegacyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.json")
	doc := `{
  "user_profile": {"name": "Ada", "subjects": ["math", "physics"], "updated_at": "2024-01-01"},
  "learning_preferences": {"pace": "slow"},
  "important_topics": ["Python", "python", "calculus"]
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s := newTestStore(t, path, 0)
	require.NoError(t, s.Load())
	assert.Equal(t, map[string]string{"name": "Ada", "subjects": "math, physics"}, s.Profile())
	assert.Equal(t, "slow", s.GetPreference("pace"))
	assert.Equal(t, []string{"Python", "calculus"}, s.Topics())

	require.NoError(t, s.Save())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "user_profile")
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestStore(t, "", 0)
	require.NoError(t, s.SetPreference("style", "visual"))
	snap := s.Snapshot()
	snap.Preferences["style"] = "changed"
	snap.ImportantTopics = append(snap.ImportantTopics, "x")
	assert.Equal(t, "visual", s.GetPreference("style"))
	assert.Empty(t, s.Topics())
}

func TestClearTopics(t *testing.T) {
	s := newTestStore(t, "", 0)
	s.AddTopic("a")
	s.ClearTopics()
	assert.Empty(t, s.Topics())
	assert.True(t, s.Dirty())
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckWritable(filepath.Join(dir, "sub", "ctx.json")))
	assert.Error(t, CheckWritable(""))
	assert.Error(t, CheckWritable(dir))
}
