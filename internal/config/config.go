// Package config loads studbot settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

const (
	ProviderOpenAI = "openai"
	ProviderDummy  = "dummy"

	DefaultCompletionURL = "http://localhost:11434/v1/chat/completions"
	DefaultModel         = "gemma3:1b"
	DefaultPersistence   = "studbot_data.json"
	DefaultFlashcards    = "studbot_flashcards.json"
)

// Config holds every runtime setting.
type Config struct {
	Provider      string
	Model         string
	APIKey        string
	CompletionURL string
	Offline       bool
	DummyScript   string

	PersistenceFile string
	// FlashcardsFile holds saved decks; it defaults to a sibling of
	// PersistenceFile.
	FlashcardsFile string
	JournalPath     string
	RestoreHistory  bool
	PersonaFile     string
	LogLevel        string

	HistoryLimit  int
	PromptHistory int
	TopicLimit    int

	CompletionTimeoutSeconds int
	ToolTimeoutSeconds       int
	ToolMaxOutputLines       int
	ToolMaxOutputBytes       int
	FilesRoots               string
	SearchURL                string

	CircuitThreshold       int
	CircuitCooldownSeconds int
}

// Load reads .env (if present in the working directory) and then the
// environment. Variables already set in the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg := Config{
		Provider:      strings.ToLower(envOrDefault("STUDBOT_PROVIDER", ProviderOpenAI)),
		Model:         envOrDefault("STUDBOT_MODEL", envOrDefault("OLLAMA_MODEL", DefaultModel)),
		APIKey:        envOrDefault("STUDBOT_API_KEY", os.Getenv("OPENAI_API_KEY")),
		CompletionURL: envOrDefault("STUDBOT_COMPLETION_URL", DefaultCompletionURL),
		Offline:       envBoolOrDefault("OFFLINE_MODE", false),
		DummyScript:   envOrDefault("STUDBOT_DUMMY_SCRIPT", "ok"),

		PersistenceFile: envOrDefault("PERSISTENCE_FILE", DefaultPersistence),
		FlashcardsFile:  os.Getenv("STUDBOT_FLASHCARDS_FILE"),
		JournalPath:     os.Getenv("STUDBOT_JOURNAL_PATH"),
		RestoreHistory:  envBoolOrDefault("STUDBOT_RESTORE_HISTORY", false),
		PersonaFile:     os.Getenv("STUDBOT_PERSONA_FILE"),
		LogLevel:        envOrDefault("LOG_LEVEL", "warn"),

		HistoryLimit:  envIntOrDefault("STUDBOT_HISTORY_LIMIT", 40),
		PromptHistory: envIntOrDefault("STUDBOT_PROMPT_HISTORY", 10),
		TopicLimit:    envIntOrDefault("STUDBOT_TOPIC_LIMIT", 20),

		CompletionTimeoutSeconds: envIntOrDefault("STUDBOT_COMPLETION_TIMEOUT_SECONDS", 60),
		ToolTimeoutSeconds:       envIntOrDefault("STUDBOT_TOOL_TIMEOUT_SECONDS", 30),
		ToolMaxOutputLines:       envIntOrDefault("STUDBOT_TOOL_MAX_OUTPUT_LINES", 2000),
		ToolMaxOutputBytes:       envIntOrDefault("STUDBOT_TOOL_MAX_OUTPUT_BYTES", 51200),
		FilesRoots:               envOrDefault("STUDBOT_FILES_ROOTS", cwd),
		SearchURL:                os.Getenv("STUDBOT_SEARCH_URL"),

		CircuitThreshold:       envIntOrDefault("STUDBOT_CIRCUIT_THRESHOLD", 3),
		CircuitCooldownSeconds: envIntOrDefault("STUDBOT_CIRCUIT_COOLDOWN_SECONDS", 60),
	}
	if strings.TrimSpace(cfg.FlashcardsFile) == "" {
		cfg.FlashcardsFile = filepath.Join(filepath.Dir(cfg.PersistenceFile), DefaultFlashcards)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks bounds and normalizes FilesRoots. Messages name the
// offending environment variable.
func (c *Config) Validate() error {
	if c.Provider != ProviderOpenAI && c.Provider != ProviderDummy {
		return fmt.Errorf("STUDBOT_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderDummy, c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("STUDBOT_MODEL must not be empty")
	}
	if strings.TrimSpace(c.PersistenceFile) == "" {
		return fmt.Errorf("PERSISTENCE_FILE must not be empty")
	}
	if c.CompletionTimeoutSeconds <= 0 {
		return fmt.Errorf("STUDBOT_COMPLETION_TIMEOUT_SECONDS must be > 0")
	}
	if c.ToolTimeoutSeconds <= 0 {
		return fmt.Errorf("STUDBOT_TOOL_TIMEOUT_SECONDS must be > 0")
	}
	if c.ToolMaxOutputLines <= 0 {
		return fmt.Errorf("STUDBOT_TOOL_MAX_OUTPUT_LINES must be > 0")
	}
	if c.ToolMaxOutputBytes <= 0 {
		return fmt.Errorf("STUDBOT_TOOL_MAX_OUTPUT_BYTES must be > 0")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("STUDBOT_HISTORY_LIMIT must be > 0")
	}
	if c.PromptHistory <= 0 || c.PromptHistory > c.HistoryLimit {
		return fmt.Errorf("STUDBOT_PROMPT_HISTORY must be between 1 and STUDBOT_HISTORY_LIMIT (%d)", c.HistoryLimit)
	}
	if c.TopicLimit <= 0 {
		return fmt.Errorf("STUDBOT_TOPIC_LIMIT must be > 0")
	}
	if c.CircuitThreshold <= 0 {
		return fmt.Errorf("STUDBOT_CIRCUIT_THRESHOLD must be > 0")
	}
	if c.CircuitCooldownSeconds <= 0 {
		return fmt.Errorf("STUDBOT_CIRCUIT_COOLDOWN_SECONDS must be > 0")
	}
	if c.Provider == ProviderOpenAI && !c.Offline && strings.TrimSpace(c.CompletionURL) == "" {
		return fmt.Errorf("STUDBOT_COMPLETION_URL is required when STUDBOT_PROVIDER=openai")
	}
	roots, err := tool.ParseRoots(c.FilesRoots)
	if err != nil {
		return fmt.Errorf("invalid STUDBOT_FILES_ROOTS: %w", err)
	}
	c.FilesRoots = strings.Join(roots, ",")
	return nil
}

// Limits returns the tool output limits.
func (c Config) Limits() tool.Limits {
	return tool.Limits{MaxLines: c.ToolMaxOutputLines, MaxBytes: c.ToolMaxOutputBytes}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}
