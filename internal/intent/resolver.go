package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
	modelpkg "github.com/stupiduntilnot/studbot/internal/model"
	"github.com/stupiduntilnot/studbot/internal/tool"
	"github.com/stupiduntilnot/studbot/internal/userctx"
)

// DefaultCompletionNotice is shown when routing could not reach the model.
const DefaultCompletionNotice = "Sorry, I can't reach the AI service right now. Please try again in a moment."

const (
	defaultTimeout      = 60 * time.Second
	defaultHistoryTurns = 6
	defaultPromptTopics = 5
)

// Options configures a Resolver.
type Options struct {
	Registry *tool.Registry
	Provider modelpkg.Provider
	Logger   *zap.Logger

	// Timeout bounds each routing completion.
	Timeout time.Duration
	// Offline routes by keyword and never calls Provider.
	Offline bool
	// HistoryTurns is how many prior turns the routing prompt includes.
	HistoryTurns int
	// Notice overrides DefaultCompletionNotice.
	Notice string
}

// Resolver picks a tool and parameters for each utterance. Resolve never
// fails; every problem degrades to a general-chat decision.
type Resolver struct {
	registry     *tool.Registry
	provider     modelpkg.Provider
	logger       *zap.Logger
	timeout      time.Duration
	offline      bool
	historyTurns int
	notice       string
}

func NewResolver(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = defaultHistoryTurns
	}
	if strings.TrimSpace(opts.Notice) == "" {
		opts.Notice = DefaultCompletionNotice
	}
	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry()
	}
	return &Resolver{
		registry:     opts.Registry,
		provider:     opts.Provider,
		logger:       opts.Logger,
		timeout:      opts.Timeout,
		offline:      opts.Offline || opts.Provider == nil,
		historyTurns: opts.HistoryTurns,
		notice:       opts.Notice,
	}
}

func (r *Resolver) Offline() bool { return r.offline }

// Resolve maps utterance to a Decision. snapshot and history are only read.
func (r *Resolver) Resolve(ctx context.Context, utterance string, snapshot userctx.UserContext, history []ctxpkg.Message) Decision {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return generalChat(OutcomeNoMatch)
	}
	if r.offline {
		return r.resolveOffline(utterance)
	}

	req := modelpkg.Request{
		Messages: BuildRoutingPrompt(r.registry.Catalog(), snapshot, lastTurns(history, r.historyTurns), utterance),
		JSON:     true,
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	resp, err := r.provider.ChatCompletion(callCtx, req)
	if err != nil {
		ce := modelpkg.AsCompletionError("routing", err)
		r.logger.Warn("routing completion failed; falling back to general chat",
			zap.String("utterance", excerpt(utterance)),
			zap.Bool("timeout", ce.Timeout || errors.Is(callCtx.Err(), context.DeadlineExceeded)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		d := generalChat(OutcomeCompletionFailed)
		d.Notice = r.notice
		return d
	}
	return r.decide(utterance, resp.Content)
}

func (r *Resolver) decide(utterance, content string) Decision {
	reply, ok := parseRoutingReply(content)
	if !ok {
		r.logger.Warn("unparseable routing reply; using general chat",
			zap.String("utterance", excerpt(utterance)),
			zap.String("reply", excerpt(content)))
		return generalChat(OutcomeNoMatch)
	}

	name := reply.toolName()
	if chatAliases[name] {
		d := generalChat(OutcomeNoMatch)
		d.Confidence = confidence(reply, 1)
		return d
	}
	t, err := r.registry.Get(name)
	if err != nil {
		r.logger.Warn("model chose an unknown tool; using general chat",
			zap.String("tool", name),
			zap.String("utterance", excerpt(utterance)),
			zap.Error(err))
		return generalChat(OutcomeUnknownTool)
	}

	params := reply.params()
	if err := t.Schema().Validate(params); err != nil {
		r.logger.Warn("routing parameters failed validation; using general chat",
			zap.String("tool", name),
			zap.String("utterance", excerpt(utterance)),
			zap.Error(err))
		return generalChat(OutcomeInvalidParams)
	}
	r.logger.Debug("intent resolved", zap.String("tool", name), zap.Any("params", params))
	return Decision{Tool: name, Params: params, Outcome: OutcomeMatched, Confidence: confidence(reply, 1)}
}

// resolveOffline tries every tool's own matcher first, then the generic
// keyword matcher for tools that have none, in registration order.
func (r *Resolver) resolveOffline(utterance string) Decision {
	tools := r.registry.List()
	for _, t := range tools {
		m, ok := t.(tool.Matcher)
		if !ok || isChatTool(t.Name()) {
			continue
		}
		params, ok := m.Match(utterance)
		if !ok {
			continue
		}
		if d, ok := r.offlineDecision(t, params, utterance, 0.9); ok {
			return d
		}
	}
	for _, t := range tools {
		if _, ok := t.(tool.Matcher); ok || isChatTool(t.Name()) {
			continue
		}
		params, ok := genericMatch(t, utterance)
		if !ok {
			continue
		}
		if d, ok := r.offlineDecision(t, params, utterance, 0.6); ok {
			return d
		}
	}
	return generalChat(OutcomeNoMatch)
}

func (r *Resolver) offlineDecision(t tool.Tool, params tool.Params, utterance string, conf float64) (Decision, bool) {
	if err := t.Schema().Validate(params); err != nil {
		r.logger.Debug("offline match rejected by schema",
			zap.String("tool", t.Name()),
			zap.String("utterance", excerpt(utterance)),
			zap.Error(err))
		return Decision{}, false
	}
	for name, v := range params {
		if s, ok := v.(string); ok && tool.IsFiller(s) {
			r.logger.Debug("offline match rejected, filler argument",
				zap.String("tool", t.Name()),
				zap.String("param", name))
			return Decision{}, false
		}
	}
	return Decision{Tool: t.Name(), Params: params, Outcome: OutcomeOfflineMatch, Confidence: conf}, true
}

// genericMatch triggers on the tool name as a whole word and fills the
// tool's single required string parameter with what follows it.
func genericMatch(t tool.Tool, utterance string) (tool.Params, bool) {
	required := t.Schema().Required()
	if len(required) != 1 {
		return nil, false
	}
	p, _ := t.Schema().Lookup(required[0])
	if p.Type != tool.TypeString {
		return nil, false
	}
	rest, ok := tool.AfterPhrase(utterance, t.Name())
	if !ok || rest == "" {
		return nil, false
	}
	return tool.Params{p.Name: rest}, true
}

func isChatTool(name string) bool { return chatAliases[name] }

func confidence(reply routingReply, fallback float64) float64 {
	if reply.Confidence == nil {
		return fallback
	}
	c := *reply.Confidence
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func lastTurns(history []ctxpkg.Message, k int) []ctxpkg.Message {
	if k <= 0 || len(history) <= k {
		return history
	}
	return history[len(history)-k:]
}

// excerpt shortens s for logs.
func excerpt(s string) string {
	const max = 80
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "…"
}

// Describe is a one-line summary used by logs and the journal.
func (d Decision) Describe() string {
	if d.IsGeneralChat() {
		return fmt.Sprintf("%s (%s)", GeneralChat, d.Outcome)
	}
	return fmt.Sprintf("%s %v (%s)", d.Tool, map[string]any(d.Params), d.Outcome)
}
