package studytool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

var quizPhrases = []string{
	"quiz me", "test me", "make a quiz", "create a quiz", "generate a quiz",
	"take a quiz", "start a quiz", "start quiz", "take quiz", "quiz",
}

type quizItem struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Answer    string   `json:"answer"`
	Rationale string   `json:"rationale"`
}

// Quiz generates multiple-choice questions on a topic.
type Quiz struct {
	completer Completer
}

func NewQuiz(c Completer) (*Quiz, error) {
	if c == nil {
		return nil, fmt.Errorf("quiz: %w", errNoCompleter)
	}
	return &Quiz{completer: c}, nil
}

func (q *Quiz) Name() string { return NameQuiz }

func (q *Quiz) Description() string {
	return "Generate a multiple-choice quiz on a topic."
}

func (q *Quiz) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "topic", Type: tool.TypeString, Required: true, Description: "subject of the quiz"},
		{Name: "level", Type: tool.TypeEnum, Enum: []string{"easy", "medium", "hard"}},
		{Name: "count", Type: tool.TypeNumber, Integer: true, Description: "number of questions, 1-10"},
	}}
}

func (q *Quiz) Match(utterance string) (tool.Params, bool) {
	topic, ok := tool.AfterPhrase(utterance, quizPhrases...)
	if !ok || topic == "" {
		return nil, false
	}
	params := tool.Params{"topic": topic}
	for _, level := range []string{"easy", "medium", "hard"} {
		if tool.ContainsWord(topic, level) {
			params["level"] = level
			params["topic"] = strings.TrimSpace(strings.Join(strings.Fields(removeWord(topic, level)), " "))
			break
		}
	}
	if params.String("topic") == "" {
		return nil, false
	}
	return params, true
}

func (q *Quiz) Execute(ctx context.Context, params tool.Params) (string, error) {
	topic := strings.TrimSpace(params.String("topic"))
	level := params.String("level")
	if level == "" {
		level = "medium"
	}
	count := clamp(params.Int("count", 5), 1, 10)

	prompt := fmt.Sprintf("Generate %d %s multiple-choice questions on '%s'. "+
		"Return ONLY a JSON array of objects with keys: question, options (list of strings), answer (string), rationale.",
		count, level, topic)
	reply, err := q.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return formatQuiz(reply, topic, level), nil
}

func formatQuiz(reply, topic, level string) string {
	var items []quizItem
	raw, ok := extractJSONArray(reply)
	if !ok || json.Unmarshal([]byte(raw), &items) != nil || len(items) == 0 {
		return fmt.Sprintf("%s Quiz (%s)\n\n%s", titleCase(topic), level, strings.TrimSpace(reply))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Quiz (%s)\n", titleCase(topic), level)
	labels := "ABCDEF"
	for i, it := range items {
		fmt.Fprintf(&b, "\nQuestion %d: %s\n", i+1, it.Question)
		for j, opt := range it.Options {
			if j >= len(labels) {
				break
			}
			fmt.Fprintf(&b, "  %c. %s\n", labels[j], opt)
		}
		fmt.Fprintf(&b, "Answer: %s\n", it.Answer)
		if it.Rationale != "" {
			fmt.Fprintf(&b, "Why: %s\n", it.Rationale)
		}
	}
	fmt.Fprintf(&b, "\n%d questions on %s.", len(items), topic)
	return b.String()
}

func removeWord(s, word string) string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if !strings.EqualFold(strings.Trim(f, ",."), word) {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}
