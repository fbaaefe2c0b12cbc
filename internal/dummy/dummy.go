package dummy

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	modelpkg "github.com/stupiduntilnot/studbot/internal/model"
)

// Script grammar, comma separated, consumed one action per call; the last
// action repeats once the script is exhausted:
//
//	ok            reply "dummy-ok"
//	msg:<text>    reply text (no commas)
//	msgb64:<b64>  reply base64-decoded text
//	err:<class>   fail with a completion error
//	sleep:<ms>    wait ms (or until the context ends), then reply
type action struct {
	kind string
	arg  string
}

func parseScript(script string) ([]action, error) {
	if strings.TrimSpace(script) == "" {
		return []action{{kind: "ok"}}, nil
	}
	parts := strings.Split(script, ",")
	actions := make([]action, 0, len(parts))
	for _, p := range parts {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		if token == "ok" {
			actions = append(actions, action{kind: "ok"})
			continue
		}
		matched := false
		for _, kind := range []string{"err", "sleep", "msg", "msgb64"} {
			if strings.HasPrefix(token, kind+":") {
				actions = append(actions, action{kind: kind, arg: strings.TrimPrefix(token, kind+":")})
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("invalid dummy action: %s", token)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, action{kind: "ok"})
	}
	return actions, nil
}

type scriptRunner struct {
	actions []action
	index   int
}

func newRunner(script string) (*scriptRunner, error) {
	actions, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &scriptRunner{actions: actions}, nil
}

func (r *scriptRunner) next() action {
	if len(r.actions) == 0 {
		return action{kind: "ok"}
	}
	if r.index >= len(r.actions) {
		return r.actions[len(r.actions)-1]
	}
	a := r.actions[r.index]
	r.index++
	return a
}

// Provider is a scripted completion service for tests and offline demos.
type Provider struct {
	mu       sync.Mutex
	model    string
	script   *scriptRunner
	requests []modelpkg.Request
}

func NewProvider(model, script string) (*Provider, error) {
	runner, err := newRunner(script)
	if err != nil {
		return nil, err
	}
	return &Provider{model: model, script: runner}, nil
}

// Requests returns every request received so far.
func (p *Provider) Requests() []modelpkg.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]modelpkg.Request(nil), p.requests...)
}

func (p *Provider) ChatCompletion(ctx context.Context, req modelpkg.Request) (modelpkg.CompletionResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	a := p.script.next()
	p.mu.Unlock()

	switch a.kind {
	case "err":
		return modelpkg.CompletionResponse{}, &modelpkg.CompletionError{
			Provider: "dummy",
			Cause:    fmt.Errorf("dummy provider error class=%s", emptyAs(a.arg, "provider_api")),
		}
	case "sleep":
		ms, _ := strconv.Atoi(a.arg)
		if ms > 0 {
			timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return modelpkg.CompletionResponse{}, modelpkg.AsCompletionError("dummy", ctx.Err())
			}
		}
		return reply("dummy-after-sleep"), nil
	case "msg":
		return reply(a.arg), nil
	case "msgb64":
		raw, err := base64.StdEncoding.DecodeString(a.arg)
		if err != nil {
			return modelpkg.CompletionResponse{}, &modelpkg.CompletionError{
				Provider: "dummy",
				Cause:    fmt.Errorf("dummy provider msgb64 decode failed: %w", err),
			}
		}
		return reply(string(raw)), nil
	default:
		return reply(emptyAs(a.arg, "dummy-ok")), nil
	}
}

func reply(content string) modelpkg.CompletionResponse {
	return modelpkg.CompletionResponse{
		Content:      content,
		InputTokens:  1,
		OutputTokens: 1,
	}
}

// Script helpers for building scripts whose replies contain commas.

// Msg returns a msgb64 action carrying text verbatim.
func Msg(text string) string {
	return "msgb64:" + base64.StdEncoding.EncodeToString([]byte(text))
}

// Script joins actions into a script string.
func Script(actions ...string) string {
	return strings.Join(actions, ",")
}

func emptyAs(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
