package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
	modelpkg "github.com/stupiduntilnot/studbot/internal/model"
	"github.com/stupiduntilnot/studbot/internal/userctx"
)

// DefaultPersona is the system prompt used when no persona file is set.
const DefaultPersona = `You are StudBot, a friendly AI study companion. Your role is to:
- Explain concepts clearly and concisely
- Answer questions about any subject
- Help students learn and understand topics
- Use examples and analogies when helpful
- Keep responses brief but informative (2-3 paragraphs max)
- Refer back to earlier topics when relevant

Be encouraging and educational in your responses.`

// promptTopics is how many recent topics the context block lists.
const promptTopics = 5

// Composer builds every user-facing completion: persona, then the user
// context block, then the last K turns, then the prompt itself.
type Composer struct {
	Provider  modelpkg.Provider
	Store     *userctx.Store
	History   *ctxpkg.History
	Assembler ctxpkg.Assembler
	Persona   string
	// K is the number of history turns included.
	K       int
	Timeout time.Duration

	mu     sync.Mutex
	pinned  []ctxpkg.Message
	pin     bool
	request string
}

func NewComposer(p modelpkg.Provider, store *userctx.Store, history *ctxpkg.History, persona string, k int, timeout time.Duration) *Composer {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	if k <= 0 {
		k = 10
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Composer{
		Provider:  p,
		Store:     store,
		History:   history,
		Assembler: &ctxpkg.StandardAssembler{},
		Persona:   persona,
		K:         k,
		Timeout:   timeout,
	}
}

// beginTurn makes the composer use turns instead of the live history until
// the returned func is called. The manager passes the turns that preceded
// the current utterance, so the utterance is never repeated as a turn.
// A non-empty request is appended to any other prompt, which keeps the
// student's own words in tool completions.
func (c *Composer) beginTurn(turns []ctxpkg.Message, request string) (end func()) {
	c.mu.Lock()
	c.pinned, c.pin, c.request = turns, true, request
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.pinned, c.pin, c.request = nil, false, ""
		c.mu.Unlock()
	}
}

func (c *Composer) withRequest(prompt string) string {
	c.mu.Lock()
	request := c.request
	c.mu.Unlock()
	if request == "" || strings.TrimSpace(prompt) == request {
		return prompt
	}
	return prompt + "\n\nStudent's request: " + request
}

func (c *Composer) recentTurns() []ctxpkg.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pin {
		return lastN(c.pinned, c.K)
	}
	if c.History == nil {
		return nil
	}
	return c.History.Last(c.K)
}

// Messages assembles the full prompt for prompt.
func (c *Composer) Messages(prompt string) []ctxpkg.Message {
	block := ""
	if c.Store != nil {
		block = c.Store.Snapshot().PromptBlock(promptTopics)
	}
	return c.Assembler.Assemble(c.Persona, block, c.recentTurns(), c.withRequest(prompt))
}

// Complete sends the assembled prompt and returns the reply text.
func (c *Composer) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Provider == nil {
		return "", &modelpkg.CompletionError{Provider: "composer", Cause: fmt.Errorf("no completion service configured")}
	}
	callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	resp, err := c.Provider.ChatCompletion(callCtx, modelpkg.Request{Messages: c.Messages(prompt)})
	if err != nil {
		return "", modelpkg.AsCompletionError("composer", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func lastN(turns []ctxpkg.Message, k int) []ctxpkg.Message {
	if k <= 0 || len(turns) <= k {
		return turns
	}
	return turns[len(turns)-k:]
}
