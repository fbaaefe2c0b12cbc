// Package studytool holds the built-in study tools and the startup list
// that registers them.
package studytool

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

// Tool names.
const (
	NameQuiz       = "quiz"
	NameFlashcards = "flashcards"
	NameMath       = "math"
	NameSummary    = "summary"
	NameRecall     = "recall"
	NameSearch     = "search"
	NameViz        = "viz"
	NameFiles      = "files"
	NameChat       = "chat"
)

// Completer produces a reply for a single prompt. The session composer
// implements it, so tool prompts carry the user's context as well.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var errNoCompleter = errors.New("requires a completion service")

// Deps is everything the built-in tools may need.
type Deps struct {
	Completer Completer
	Policy    *tool.Policy
	BaseDir   string
	Limits    tool.Limits
	// Decks keeps saved flashcards; nil keeps them in memory.
	Decks *DeckStore

	Offline    bool
	SearchURL  string
	HTTPClient *http.Client
}

// Factories returns the built-in tools in registration order.
func Factories(d Deps) []tool.Factory {
	return []tool.Factory{
		{Name: NameQuiz, New: func() (tool.Tool, error) { return NewQuiz(d.Completer) }},
		{Name: NameFlashcards, New: func() (tool.Tool, error) { return NewFlashcards(d.Completer, d.Decks) }},
		{Name: NameRecall, New: func() (tool.Tool, error) { return NewRecall(d.Completer) }},
		{Name: NameMath, New: func() (tool.Tool, error) { return NewMath(d.Completer), nil }},
		{Name: NameSummary, New: func() (tool.Tool, error) { return NewSummary(d.Completer, d.Policy, d.BaseDir) }},
		{Name: NameSearch, New: func() (tool.Tool, error) { return NewSearch(d.SearchURL, d.Offline, d.HTTPClient), nil }},
		{Name: NameViz, New: func() (tool.Tool, error) { return NewViz(d.Completer) }},
		{Name: NameFiles, New: func() (tool.Tool, error) { return NewFiles(d.Policy, d.BaseDir, d.Limits) }},
		{Name: NameChat, New: func() (tool.Tool, error) { return NewChat(d.Completer) }},
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// titleCase upper-cases the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// extractJSONArray returns the outermost [...] span of text, if any.
func extractJSONArray(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

const defaultHTTPTimeout = 15 * time.Second
