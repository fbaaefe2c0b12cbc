// Package session runs the turn loop: it records history, resolves intent,
// dispatches to a tool or general chat and writes learned topics back to
// the user context.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
	"github.com/stupiduntilnot/studbot/internal/db"
	"github.com/stupiduntilnot/studbot/internal/intent"
	modelpkg "github.com/stupiduntilnot/studbot/internal/model"
	"github.com/stupiduntilnot/studbot/internal/tool"
	"github.com/stupiduntilnot/studbot/internal/userctx"
)

// DefaultToolFailureNotice is shown when a tool fails. "{tool}" is replaced
// by the tool name.
const DefaultToolFailureNotice = "Sorry, the {tool} tool ran into a problem. Please try again or rephrase."

// Options wires a Manager. Store, Resolver, Runner and Composer are required.
type Options struct {
	Store    *userctx.Store
	History  *ctxpkg.History
	Resolver *intent.Resolver
	Runner   *tool.Runner
	Composer *Composer
	Journal  *db.Journal
	Logger   *zap.Logger

	// CompletionNotice is shown when general chat cannot reach the model.
	CompletionNotice  string
	ToolFailureNotice string
}

// Reply is the outcome of one turn.
type Reply struct {
	Text     string
	Decision intent.Decision
	// Topics lists topics newly added to the store this turn.
	Topics []string
	// Err is the recoverable error behind a notice, if any.
	Err error
}

// Manager owns the conversation for one session.
type Manager struct {
	store    *userctx.Store
	history  *ctxpkg.History
	resolver *intent.Resolver
	runner   *tool.Runner
	composer *Composer
	journal  *db.Journal
	logger   *zap.Logger

	completionNotice  string
	toolFailureNotice string
	turns             int
}

func NewManager(opts Options) (*Manager, error) {
	switch {
	case opts.Store == nil:
		return nil, fmt.Errorf("session: store is required")
	case opts.Resolver == nil:
		return nil, fmt.Errorf("session: resolver is required")
	case opts.Runner == nil:
		return nil, fmt.Errorf("session: runner is required")
	case opts.Composer == nil:
		return nil, fmt.Errorf("session: composer is required")
	}
	if opts.History == nil {
		opts.History = opts.Composer.History
	}
	if opts.History == nil {
		opts.History = ctxpkg.NewHistory(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.CompletionNotice) == "" {
		opts.CompletionNotice = intent.DefaultCompletionNotice
	}
	if strings.TrimSpace(opts.ToolFailureNotice) == "" {
		opts.ToolFailureNotice = DefaultToolFailureNotice
	}
	return &Manager{
		store:             opts.Store,
		history:           opts.History,
		resolver:          opts.Resolver,
		runner:            opts.Runner,
		composer:          opts.Composer,
		journal:           opts.Journal,
		logger:            opts.Logger,
		completionNotice:  opts.CompletionNotice,
		toolFailureNotice: opts.ToolFailureNotice,
	}, nil
}

// HandleTurn runs one exchange. It never fails: every problem becomes a
// short notice in Reply.Text with the cause in Reply.Err.
func (m *Manager) HandleTurn(ctx context.Context, utterance string) Reply {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Reply{Decision: intent.Decision{Tool: intent.GeneralChat, Outcome: intent.OutcomeNoMatch}}
	}
	m.turns++

	prior := m.history.Last(m.composer.K)
	snapshot := m.store.Snapshot()
	m.history.Append(ctxpkg.RoleUser, utterance)
	m.journal.Turn(ctxpkg.RoleUser, utterance)
	turnID := m.journal.Event(0, db.EventTurnStarted, map[string]any{
		"utterance": excerpt(utterance),
		"turn":      m.turns,
	})

	endTurn := m.composer.beginTurn(prior, utterance)
	defer endTurn()

	decision := m.resolver.Resolve(ctx, utterance, snapshot, prior)
	m.journal.Event(turnID, db.EventIntentResolved, map[string]any{
		"tool":       decision.Tool,
		"outcome":    string(decision.Outcome),
		"confidence": decision.Confidence,
	})

	reply := Reply{Decision: decision}
	switch {
	case decision.Notice != "":
		reply.Text = decision.Notice
		m.journal.Event(turnID, db.EventCompletionFailed, map[string]any{"stage": "routing"})
	case decision.IsGeneralChat():
		reply.Text, reply.Err = m.chat(ctx, turnID, utterance)
	default:
		reply.Text, reply.Err = m.runTool(ctx, turnID, utterance, decision)
	}

	m.history.Append(ctxpkg.RoleAssistant, reply.Text)
	m.journal.Turn(ctxpkg.RoleAssistant, reply.Text)

	for _, topic := range ExtractTopics(utterance, decision) {
		if m.store.AddTopic(topic) {
			reply.Topics = append(reply.Topics, topic)
		}
	}
	if len(reply.Topics) > 0 {
		m.journal.Event(turnID, db.EventTopicsExtracted, map[string]any{"topics": reply.Topics})
	}
	m.persist(turnID)
	m.journal.Event(turnID, db.EventReplySent, map[string]any{"chars": len(reply.Text)})
	return reply
}

func (m *Manager) chat(ctx context.Context, turnID int64, utterance string) (string, error) {
	text, err := m.composer.Complete(ctx, utterance)
	if err == nil && text == "" {
		err = &modelpkg.CompletionError{Provider: "composer", Cause: errors.New("empty reply")}
	}
	if err != nil {
		var ce *modelpkg.CompletionError
		timeout := errors.As(err, &ce) && ce.Timeout
		m.logger.Warn("general chat completion failed",
			zap.String("utterance", excerpt(utterance)),
			zap.Bool("timeout", timeout),
			zap.Error(err))
		m.journal.Event(turnID, db.EventCompletionFailed, map[string]any{"stage": "chat", "timeout": timeout})
		return m.completionNotice, err
	}
	return text, nil
}

func (m *Manager) runTool(ctx context.Context, turnID int64, utterance string, d intent.Decision) (string, error) {
	started := time.Now()
	out, err := m.runner.Run(ctx, d.Tool, d.Params)
	if err != nil {
		m.logger.Warn("tool failed",
			zap.String("tool", d.Tool),
			zap.String("utterance", excerpt(utterance)),
			zap.Error(err))
		m.journal.Event(turnID, db.EventToolCallFailed, map[string]any{
			"tool":  d.Tool,
			"error": excerpt(err.Error()),
		})
		return strings.ReplaceAll(m.toolFailureNotice, "{tool}", d.Tool), err
	}
	m.journal.Event(turnID, db.EventToolCallDone, map[string]any{
		"tool":       d.Tool,
		"latency_ms": time.Since(started).Milliseconds(),
	})
	if strings.TrimSpace(out) == "" {
		out = fmt.Sprintf("The %s tool finished without output.", d.Tool)
	}
	return out, nil
}

// persist saves the store when the turn changed it.
func (m *Manager) persist(turnID int64) {
	saved, err := m.store.SaveIfDirty()
	if err != nil {
		m.logger.Error("failed to save user context", zap.String("path", m.store.Path()), zap.Error(err))
		m.journal.Event(turnID, db.EventContextSaveFailed, map[string]any{"error": err.Error()})
		return
	}
	if saved {
		m.journal.Event(turnID, db.EventContextSaved, nil)
	}
}

// History returns the retained turns, oldest first.
func (m *Manager) History() []ctxpkg.Message {
	return m.history.Last(0)
}

func (m *Manager) ClearHistory() {
	m.history.Clear()
}

func (m *Manager) Store() *userctx.Store { return m.store }

// Summarize asks the model for a short recap of the session and stores it
// as the session summary. Without a usable model it stores a local recap
// built from recent topics.
func (m *Manager) Summarize(ctx context.Context) (string, error) {
	turns := m.history.Last(20)
	if len(turns) == 0 {
		return "", fmt.Errorf("nothing to summarize yet")
	}

	summary := ""
	if !m.resolver.Offline() {
		var b strings.Builder
		for _, t := range turns {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, excerpt(t.Content))
		}
		prompt := "Summarize this study session in at most two sentences for next time. " +
			"Name the topics covered and anything the student found difficult.\n\n" + b.String()
		// The transcript is already in the prompt.
		endTurn := m.composer.beginTurn(nil, "")
		text, err := m.composer.Complete(ctx, prompt)
		endTurn()
		if err != nil {
			m.logger.Warn("summary completion failed; using local summary", zap.Error(err))
		} else {
			summary = text
		}
	}
	if summary == "" {
		summary = localSummary(m.store.Snapshot(), len(turns))
	}

	m.store.SetSessionSummary(summary)
	m.journal.Event(0, db.EventSummaryStored, map[string]any{"chars": len(summary)})
	if err := m.store.Save(); err != nil {
		return summary, fmt.Errorf("save summary: %w", err)
	}
	return summary, nil
}

func localSummary(c userctx.UserContext, turns int) string {
	topics := c.RecentTopics(5)
	if len(topics) == 0 {
		return fmt.Sprintf("Chatted for %d turns without a specific topic.", turns)
	}
	return fmt.Sprintf("Studied %s over %d turns.", strings.Join(topics, ", "), turns)
}

// Close flushes any pending context change and ends the journal session.
func (m *Manager) Close() error {
	_, err := m.store.SaveIfDirty()
	if err != nil {
		m.logger.Error("failed to save user context on close", zap.String("path", m.store.Path()), zap.Error(err))
	}
	m.journal.Close(map[string]any{"turns": m.turns})
	return err
}

func excerpt(s string) string {
	const max = 80
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "…"
	}
	return s
}
