package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/stupiduntilnot/studbot/internal/config"
	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
	"github.com/stupiduntilnot/studbot/internal/control"
	"github.com/stupiduntilnot/studbot/internal/db"
	"github.com/stupiduntilnot/studbot/internal/dummy"
	"github.com/stupiduntilnot/studbot/internal/intent"
	modelpkg "github.com/stupiduntilnot/studbot/internal/model"
	"github.com/stupiduntilnot/studbot/internal/openai"
	"github.com/stupiduntilnot/studbot/internal/session"
	"github.com/stupiduntilnot/studbot/internal/studytool"
	toolpkg "github.com/stupiduntilnot/studbot/internal/tool"
	"github.com/stupiduntilnot/studbot/internal/userctx"
)

// app is a fully wired study session.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *userctx.Store
	registry *toolpkg.Registry
	manager  *session.Manager
	journal  *sql.DB
}

// openStore loads the persisted user context. A corrupt file is reported
// and replaced by defaults; an unwritable path is fatal.
func openStore(cfg config.Config, logger *zap.Logger, errOut io.Writer) (*userctx.Store, error) {
	if err := userctx.CheckWritable(cfg.PersistenceFile); err != nil {
		return nil, fmt.Errorf("PERSISTENCE_FILE %s is not writable: %w", cfg.PersistenceFile, err)
	}
	store := userctx.NewStore(userctx.Options{
		Path:       cfg.PersistenceFile,
		TopicLimit: cfg.TopicLimit,
		Logger:     logger,
	})
	if err := store.Load(); err != nil {
		var corrupt *userctx.PersistenceCorruptError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		fmt.Fprintf(errOut, "warning: %v\n", err)
	}
	return store, nil
}

func newModelProvider(cfg config.Config) (modelpkg.Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.APIKey, cfg.CompletionURL, cfg.Model, time.Duration(cfg.CompletionTimeoutSeconds)*time.Second), nil
	case config.ProviderDummy:
		return dummy.NewProvider(cfg.Model, cfg.DummyScript)
	default:
		return nil, fmt.Errorf("unsupported STUDBOT_PROVIDER: %s", cfg.Provider)
	}
}

func newRegistry(cfg config.Config, completer studytool.Completer, logger *zap.Logger) (*toolpkg.Registry, error) {
	policy, err := toolpkg.NewPolicy(cfg.FilesRoots)
	if err != nil {
		return nil, fmt.Errorf("invalid tool policy: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	registry := toolpkg.NewRegistry()
	toolpkg.Discover(registry, studytool.Factories(studytool.Deps{
		Completer:  completer,
		Policy:     policy,
		BaseDir:    cwd,
		Limits:     cfg.Limits(),
		Decks:      studytool.NewDeckStore(cfg.FlashcardsFile),
		Offline:    cfg.Offline,
		SearchURL:  cfg.SearchURL,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.ToolTimeoutSeconds) * time.Second},
	}), logger)
	return registry, nil
}

func buildApp(cfg config.Config, logger *zap.Logger, errOut io.Writer) (*app, error) {
	store, err := openStore(cfg, logger, errOut)
	if err != nil {
		return nil, err
	}
	persona, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		return nil, err
	}
	provider, err := newModelProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init model provider: %w", err)
	}
	breaker := control.NewCircuitBreaker(cfg.CircuitThreshold, time.Duration(cfg.CircuitCooldownSeconds)*time.Second)
	guarded := control.NewGuard(provider, breaker, logger)

	completionTimeout := time.Duration(cfg.CompletionTimeoutSeconds) * time.Second
	history := ctxpkg.NewHistory(cfg.HistoryLimit)
	composer := session.NewComposer(guarded, store, history, persona.SystemPrompt, cfg.PromptHistory, completionTimeout)

	registry, err := newRegistry(cfg, composer, logger)
	if err != nil {
		return nil, err
	}
	resolver := intent.NewResolver(intent.Options{
		Registry: registry,
		Provider: guarded,
		Logger:   logger,
		Timeout:  completionTimeout,
		Offline:  cfg.Offline,
		Notice:   persona.CompletionNotice,
	})

	a := &app{cfg: cfg, logger: logger, store: store, registry: registry}
	var journal *db.Journal
	if cfg.JournalPath != "" {
		database, err := db.OpenDB(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(database); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to init journal schema: %w", err)
		}
		if cfg.RestoreHistory {
			turns, err := (&ctxpkg.SQLiteProvider{DB: database}).GetHistory(cfg.HistoryLimit)
			if err != nil {
				logger.Warn("failed to restore history", zap.Error(err))
			}
			history.Restore(turns)
		}
		journal = db.StartJournal(database, db.NewSessionID(), map[string]any{
			"provider": cfg.Provider,
			"model":    cfg.Model,
			"offline":  cfg.Offline,
			"pid":      os.Getpid(),
		}, logger)
		logger.Info("journal started", zap.String("session_id", journal.SessionID()), zap.String("path", cfg.JournalPath))
		a.journal = database
	}

	manager, err := session.NewManager(session.Options{
		Store:             store,
		History:           history,
		Resolver:          resolver,
		Runner:            toolpkg.NewRunner(registry, time.Duration(cfg.ToolTimeoutSeconds)*time.Second),
		Composer:          composer,
		Journal:           journal,
		Logger:            logger,
		CompletionNotice:  persona.CompletionNotice,
		ToolFailureNotice: persona.ToolFailureNotice,
	})
	if err != nil {
		a.closeJournal()
		return nil, err
	}
	a.manager = manager
	return a, nil
}

// Close flushes the session and releases the journal.
func (a *app) Close() error {
	err := a.manager.Close()
	a.closeJournal()
	return err
}

func (a *app) closeJournal() {
	if a.journal != nil {
		a.journal.Close()
		a.journal = nil
	}
}
