package userctx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options configures a Store.
type Options struct {
	// Path of the JSON persistence file. Empty keeps the context in memory.
	Path       string
	TopicLimit int
	Logger     *zap.Logger
	Now        func() time.Time
}

// Store is the single owner of the user context. All reads and writes are
// serialized, so one instance may be shared by several sessions.
type Store struct {
	mu     sync.Mutex
	path   string
	limit  int
	logger *zap.Logger
	now    func() time.Time

	data  UserContext
	extra map[string]json.RawMessage
	dirty bool
}

func NewStore(opts Options) *Store {
	if opts.TopicLimit <= 0 {
		opts.TopicLimit = DefaultTopicLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		path:   opts.Path,
		limit:  opts.TopicLimit,
		logger: opts.Logger,
		now:    opts.Now,
		data:   defaults(),
	}
}

func (s *Store) Path() string { return s.path }

// Load replaces the in-memory context with the persisted one. A missing
// file yields defaults and no error. A corrupt file also yields defaults;
// the file is copied aside and a *PersistenceCorruptError is returned for
// the caller to report. Other read errors are returned with defaults in place.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = defaults()
	s.extra = nil
	s.dirty = false
	if s.path == "" {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no persisted context; starting with defaults", zap.String("path", s.path))
		return nil
	}
	if err != nil {
		s.logger.Warn("failed to read persisted context; using defaults", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("read context %s: %w", s.path, err)
	}

	data, extra, err := decode(raw)
	if err != nil {
		corrupt := &PersistenceCorruptError{Path: s.path, Cause: err}
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
		if werr := os.WriteFile(backup, raw, 0o600); werr != nil {
			s.logger.Warn("failed to back up corrupt context", zap.String("backup", backup), zap.Error(werr))
		} else {
			corrupt.Backup = backup
		}
		s.logger.Warn("persisted context is corrupt; using defaults", zap.Error(corrupt))
		return corrupt
	}

	s.data = data
	s.extra = extra
	s.normalizeTopics()
	return nil
}

// normalizeTopics applies dedup and the size bound to loaded topics.
func (s *Store) normalizeTopics() {
	loaded := s.data.ImportantTopics
	s.data.ImportantTopics = []string{}
	for _, t := range loaded {
		s.addTopicLocked(t)
	}
}

// Save atomically writes the full context: the document goes to a temp file
// in the same directory, is synced, then renamed over the target.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		s.dirty = false
		return nil
	}
	data, err := encode(s.data, s.extra)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	if err := WriteFileAtomic(s.path, data); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// SaveIfDirty saves only when something changed since the last load/save.
func (s *Store) SaveIfDirty() (bool, error) {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if !dirty {
		return false, nil
	}
	return true, s.Save()
}

func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// WriteFileAtomic replaces path with data through a synced temp file in the
// same directory, so readers see either the old or the new contents.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// CheckWritable verifies that the directory holding path accepts new files.
// It is meant for startup, where an unwritable location is fatal.
func CheckWritable(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("persistence path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persistence directory %s is not usable: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".studbot-probe-*")
	if err != nil {
		return fmt.Errorf("persistence directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	_ = os.Remove(name)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("persistence path %s is a directory", path)
	}
	return nil
}

func (s *Store) touch() {
	s.data.LastUpdated = s.now()
	s.dirty = true
}

// GetProfileField returns the profile value for key, or "" when absent.
func (s *Store) GetProfileField(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Profile[key]
}

func (s *Store) SetProfileField(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("profile key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Profile[key] = value
	s.touch()
	return nil
}

// Profile returns a copy of every profile field.
func (s *Store) Profile() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone().Profile
}

// AddTopic records topic as most recent. Comparison ignores case and the
// first-seen casing is kept; a known topic is left where it is. When the
// bound is exceeded the oldest topic is evicted. It reports whether the
// topic was added.
func (s *Store) AddTopic(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.addTopicLocked(topic) {
		return false
	}
	s.touch()
	return true
}

func (s *Store) addTopicLocked(topic string) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}
	for _, existing := range s.data.ImportantTopics {
		if strings.EqualFold(existing, topic) {
			return false
		}
	}
	s.data.ImportantTopics = append(s.data.ImportantTopics, topic)
	if over := len(s.data.ImportantTopics) - s.limit; over > 0 {
		s.data.ImportantTopics = append([]string{}, s.data.ImportantTopics[over:]...)
	}
	return true
}

// Topics returns the topic set, oldest first.
func (s *Store) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone().ImportantTopics
}

func (s *Store) ClearTopics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data.ImportantTopics) == 0 {
		return
	}
	s.data.ImportantTopics = []string{}
	s.touch()
}

func (s *Store) GetPreferences() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone().Preferences
}

func (s *Store) GetPreference(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Preferences[key]
}

func (s *Store) SetPreference(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("preference key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Preferences[key] = value
	s.touch()
	return nil
}

func (s *Store) SessionSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SessionSummary
}

func (s *Store) SetSessionSummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SessionSummary = strings.TrimSpace(summary)
	s.touch()
}

// Snapshot returns a deep copy of the full context.
func (s *Store) Snapshot() UserContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}
