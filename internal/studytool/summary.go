package studytool

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

// maxSummaryInput bounds the text sent for summarizing, in runes.
const maxSummaryInput = 4000

var summaryPhrases = []string{"summarize", "summarise", "summary of", "sum up"}

// Summary condenses text or a file into study notes.
type Summary struct {
	completer Completer
	policy    *tool.Policy
	baseDir   string
}

// NewSummary builds the tool. A nil policy disables the path parameter.
func NewSummary(c Completer, policy *tool.Policy, baseDir string) (*Summary, error) {
	if c == nil {
		return nil, fmt.Errorf("summary: %w", errNoCompleter)
	}
	return &Summary{completer: c, policy: policy, baseDir: baseDir}, nil
}

func (s *Summary) Name() string { return NameSummary }

func (s *Summary) Description() string {
	return "Summarize text or a file into study notes."
}

func (s *Summary) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "content", Type: tool.TypeString, Description: "text to summarize"},
		{Name: "path", Type: tool.TypeString, Description: "file to summarize instead of content"},
		{Name: "style", Type: tool.TypeEnum, Enum: []string{"bullet", "structured", "concise"}},
	}}
}

func (s *Summary) Match(utterance string) (tool.Params, bool) {
	rest, ok := tool.AfterPhrase(utterance, summaryPhrases...)
	if !ok || rest == "" {
		return nil, false
	}
	if looksLikePath(rest) {
		return tool.Params{"path": rest}, true
	}
	return tool.Params{"content": rest}, true
}

func (s *Summary) Execute(ctx context.Context, params tool.Params) (string, error) {
	content := params.String("content")
	if path := strings.TrimSpace(params.String("path")); path != "" {
		if s.policy == nil {
			return "", fmt.Errorf("file access is disabled")
		}
		resolved, err := s.policy.Resolve(path, s.baseDir)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		content = string(data)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("no content provided to summarize")
	}
	if utf8.RuneCountInString(content) > maxSummaryInput {
		content = string([]rune(content)[:maxSummaryInput])
	}
	style := params.String("style")
	if style == "" {
		style = "structured"
	}

	prompt := fmt.Sprintf("Summarize the following content into %s study notes. "+
		"Focus on key concepts and definitions:\n\n%s", style, content)
	reply, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return "Study Summary\n\n" + strings.TrimSpace(reply), nil
}

// looksLikePath reports whether s is a single token naming a file.
func looksLikePath(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	return strings.Contains(s, "/") || strings.Contains(s, ".")
}
