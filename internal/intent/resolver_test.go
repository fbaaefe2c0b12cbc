package intent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
	"github.com/stupiduntilnot/studbot/internal/control"
	"github.com/stupiduntilnot/studbot/internal/dummy"
	"github.com/stupiduntilnot/studbot/internal/studytool"
	"github.com/stupiduntilnot/studbot/internal/tool"
	"github.com/stupiduntilnot/studbot/internal/userctx"
)

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	noop := studytool.CompleterFunc(func(context.Context, string) (string, error) { return "", nil })
	policy, err := tool.NewPolicy(t.TempDir())
	require.NoError(t, err)
	reg := tool.NewRegistry()
	n := tool.Discover(reg, studytool.Factories(studytool.Deps{Completer: noop, Policy: policy}), zap.NewNop())
	require.Equal(t, 7, n)
	return reg
}

func newProvider(t *testing.T, actions ...string) *dummy.Provider {
	t.Helper()
	p, err := dummy.NewProvider("test", dummy.Script(actions...))
	require.NoError(t, err)
	return p
}

func resolve(t *testing.T, r *Resolver, utterance string) Decision {
	t.Helper()
	return r.Resolve(context.Background(), utterance, userctx.UserContext{}, nil)
}

func TestResolveQuizMeOnBiology(t *testing.T) {
	p := newProvider(t, dummy.Msg(`{"tool": "quiz", "parameters": {"topic": "biology"}}`))
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p})

	d := resolve(t, r, "Quiz me on biology")
	assert.Equal(t, "quiz", d.Tool)
	assert.Equal(t, tool.Params{"topic": "biology"}, d.Params)
	assert.Equal(t, OutcomeMatched, d.Outcome)
	assert.Empty(t, d.Notice)

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].JSON, "routing must ask for a JSON reply")
}

func TestResolveGibberishIsGeneralChat(t *testing.T) {
	p := newProvider(t, dummy.Msg(`{"tool": "chat", "parameters": {}}`))
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p})

	d := resolve(t, r, "asdf qwerty zxcv")
	assert.True(t, d.IsGeneralChat())
	assert.Empty(t, d.Params)
	assert.Equal(t, OutcomeNoMatch, d.Outcome)
}

func TestResolveMissingRequiredParam(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := newProvider(t, dummy.Msg(`{"tool": "quiz", "parameters": {"level": "easy"}}`))
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p, Logger: zap.New(core)})

	d := resolve(t, r, "give me a quiz")
	assert.True(t, d.IsGeneralChat())
	assert.Equal(t, OutcomeInvalidParams, d.Outcome)
	assert.Empty(t, d.Params)

	entries := logs.FilterMessage("routing parameters failed validation; using general chat").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "quiz", entries[0].ContextMap()["tool"])
}

func TestResolveRejectsBadEnumAndUnknownParam(t *testing.T) {
	for _, reply := range []string{
		`{"tool": "quiz", "parameters": {"topic": "x", "level": "impossible"}}`,
		`{"tool": "quiz", "parameters": {"topic": "x", "colour": "red"}}`,
		`{"tool": "quiz", "parameters": {"topic": "x", "count": "5"}}`,
	} {
		r := NewResolver(Options{Registry: testRegistry(t), Provider: newProvider(t, dummy.Msg(reply))})
		d := resolve(t, r, "quiz")
		assert.Equal(t, OutcomeInvalidParams, d.Outcome, reply)
	}
}

func TestResolveUnknownTool(t *testing.T) {
	p := newProvider(t, dummy.Msg(`{"tool": "teleport", "parameters": {"to": "mars"}}`))
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p})

	d := resolve(t, r, "beam me up")
	assert.True(t, d.IsGeneralChat())
	assert.Equal(t, OutcomeUnknownTool, d.Outcome)
}

func TestResolveJSONInsideProseAndNullParams(t *testing.T) {
	reply := "Sure! Here you go:\n```json\n" +
		`{"tool": "Recall", "parameters": {"topic": "cell {division}", "count": 4, "extra": null}, "confidence": 0.8}` +
		"\n```"
	r := NewResolver(Options{Registry: testRegistry(t), Provider: newProvider(t, dummy.Msg(reply))})

	d := resolve(t, r, "flashcards please")
	require.Equal(t, OutcomeMatched, d.Outcome)
	assert.Equal(t, "recall", d.Tool)
	assert.Equal(t, tool.Params{"topic": "cell {division}", "count": float64(4)}, d.Params)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
}

func TestResolveUnparseableReply(t *testing.T) {
	r := NewResolver(Options{Registry: testRegistry(t), Provider: newProvider(t, dummy.Msg("I think you want a quiz"))})
	d := resolve(t, r, "quiz")
	assert.True(t, d.IsGeneralChat())
	assert.Equal(t, OutcomeNoMatch, d.Outcome)
}

func TestResolveCompletionTimeout(t *testing.T) {
	p := newProvider(t, "sleep:5000")
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p, Timeout: 50 * time.Millisecond})

	started := time.Now()
	d := resolve(t, r, "Quiz me on biology")
	elapsed := time.Since(started)

	assert.True(t, d.IsGeneralChat())
	assert.Equal(t, OutcomeCompletionFailed, d.Outcome)
	assert.Equal(t, DefaultCompletionNotice, d.Notice)
	assert.Less(t, elapsed, 2*time.Second, "fallback must arrive within the timeout")
}

func TestResolveCompletionError(t *testing.T) {
	r := NewResolver(Options{Registry: testRegistry(t), Provider: newProvider(t, "err:provider_api"), Notice: "offline, sorry"})
	d := resolve(t, r, "hello")
	assert.Equal(t, OutcomeCompletionFailed, d.Outcome)
	assert.Equal(t, "offline, sorry", d.Notice)
}

func TestResolveOpenCircuit(t *testing.T) {
	p := newProvider(t, "err:boom")
	guard := control.NewGuard(p, control.NewCircuitBreaker(1, time.Hour), nil)
	r := NewResolver(Options{Registry: testRegistry(t), Provider: guard})

	first := resolve(t, r, "hello")
	assert.Equal(t, OutcomeCompletionFailed, first.Outcome)
	second := resolve(t, r, "hello again")
	assert.Equal(t, OutcomeCompletionFailed, second.Outcome)
	assert.NotEmpty(t, second.Notice)
	assert.Len(t, p.Requests(), 1, "open circuit must short-circuit the provider")
}

func TestResolveEmptyUtterance(t *testing.T) {
	p := newProvider(t)
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p})
	d := resolve(t, r, "   ")
	assert.True(t, d.IsGeneralChat())
	assert.Empty(t, p.Requests())
}

func TestRoutingPromptContents(t *testing.T) {
	p := newProvider(t, dummy.Msg(`{"tool":"chat","parameters":{}}`))
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p, HistoryTurns: 2})

	snap := userctx.UserContext{
		Profile:         map[string]string{"name": "Ada", "study_level": "university"},
		ImportantTopics: []string{"limits", "derivatives"},
	}
	history := []ctxpkg.Message{
		{Role: ctxpkg.RoleUser, Content: "old question"},
		{Role: ctxpkg.RoleUser, Content: "what is a limit"},
		{Role: ctxpkg.RoleAssistant, Content: "A limit is..."},
	}
	r.Resolve(context.Background(), "and derivatives?", snap, history)

	msgs := p.Requests()[0].Messages
	require.Len(t, msgs, 2)
	sys := msgs[0].Content
	assert.Equal(t, ctxpkg.RoleSystem, msgs[0].Role)
	assert.Contains(t, sys, "- quiz: Generate a multiple-choice quiz on a topic. Parameters: topic:string (required)")
	assert.NotContains(t, sys, "- chat:")
	assert.Contains(t, sys, "name: Ada")
	assert.Contains(t, sys, "recent topics: limits, derivatives")
	assert.Contains(t, sys, "user: what is a limit")
	assert.NotContains(t, sys, "old question")
	assert.Contains(t, sys, `{"tool": "<tool name or chat>", "parameters": {...}}`)
	assert.Equal(t, "and derivatives?", msgs[1].Content)
}

func TestResolveOffline(t *testing.T) {
	p := newProvider(t)
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p, Offline: true})

	d := resolve(t, r, "Quiz me on biology")
	assert.Equal(t, "quiz", d.Tool)
	assert.Equal(t, tool.Params{"topic": "biology"}, d.Params)
	assert.Equal(t, OutcomeOfflineMatch, d.Outcome)

	d = resolve(t, r, "calculate 3 * 7")
	assert.Equal(t, "math", d.Tool)

	d = resolve(t, r, "search for black holes")
	assert.Equal(t, "search", d.Tool)
	assert.Equal(t, "black holes", d.Params.String("query"))

	d = resolve(t, r, "blorp fizzle wump")
	assert.True(t, d.IsGeneralChat())
	assert.Empty(t, d.Params)

	assert.Empty(t, p.Requests(), "offline mode must not call the model")
}

func TestResolveOfflineIgnoresFillerArguments(t *testing.T) {
	p := newProvider(t)
	r := NewResolver(Options{Registry: testRegistry(t), Provider: p, Offline: true})

	for _, utterance := range []string{
		"quiz me",
		"Can you quiz me?",
		"give me a quiz please",
		"summarize this",
		"search for something",
	} {
		d := resolve(t, r, utterance)
		assert.True(t, d.IsGeneralChat(), "%q routed to %s %v", utterance, d.Tool, d.Params)
		assert.Equal(t, OutcomeNoMatch, d.Outcome, utterance)
	}

	d := resolve(t, r, "give me a quiz on the solar system please")
	assert.Equal(t, "quiz", d.Tool)
	assert.Equal(t, OutcomeOfflineMatch, d.Outcome)
	assert.Empty(t, p.Requests())
}

// keywordOnly has no Matcher, so only the generic matcher can pick it.
type keywordOnly struct{}

func (keywordOnly) Name() string        { return "define" }
func (keywordOnly) Description() string { return "Define a term." }
func (keywordOnly) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{{Name: "term", Type: tool.TypeString, Required: true}}}
}
func (keywordOnly) Execute(context.Context, tool.Params) (string, error) { return "", nil }

func TestResolveOfflineGenericMatcher(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(keywordOnly{}))
	r := NewResolver(Options{Registry: reg, Offline: true})

	d := resolve(t, r, "please define of osmosis")
	assert.Equal(t, "define", d.Tool)
	assert.Equal(t, tool.Params{"term": "osmosis"}, d.Params)

	d = resolve(t, r, "define")
	assert.True(t, d.IsGeneralChat(), "empty remainder fails the required field")
	d = resolve(t, r, "redefine everything")
	assert.True(t, d.IsGeneralChat())
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := excerpt(long)
	assert.LessOrEqual(t, len([]rune(got)), 81)
	assert.Equal(t, "a b", excerpt("  a \n b "))
}
