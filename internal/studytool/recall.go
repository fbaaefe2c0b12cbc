package studytool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

var recallPhrases = []string{
	"flashcards", "flashcard", "study cards", "active recall", "recall",
}

type card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Recall runs an active-recall drill of flashcard questions.
type Recall struct {
	completer Completer
}

func NewRecall(c Completer) (*Recall, error) {
	if c == nil {
		return nil, fmt.Errorf("recall: %w", errNoCompleter)
	}
	return &Recall{completer: c}, nil
}

func (r *Recall) Name() string { return NameRecall }

func (r *Recall) Description() string {
	return "Active recall drill: flashcard questions with answers on a topic."
}

func (r *Recall) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "topic", Type: tool.TypeString, Required: true},
		{Name: "count", Type: tool.TypeNumber, Integer: true, Description: "number of cards, 1-10"},
	}}
}

func (r *Recall) Match(utterance string) (tool.Params, bool) {
	topic, ok := tool.AfterPhrase(utterance, recallPhrases...)
	if !ok || topic == "" {
		return nil, false
	}
	return tool.Params{"topic": topic}, true
}

func (r *Recall) Execute(ctx context.Context, params tool.Params) (string, error) {
	topic := strings.TrimSpace(params.String("topic"))
	count := clamp(params.Int("count", 3), 1, 10)

	prompt := fmt.Sprintf("Generate %d active recall questions for the topic '%s'. "+
		"For each, give a 'front' (the question) and a 'back' (the answer). "+
		"Return ONLY a JSON array of objects with 'front' and 'back' keys.", count, topic)
	reply, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return formatCards(reply, topic), nil
}

func formatCards(reply, topic string) string {
	var cards []card
	raw, ok := extractJSONArray(reply)
	if !ok || json.Unmarshal([]byte(raw), &cards) != nil || len(cards) == 0 {
		return fmt.Sprintf("Active Recall: %s\n\n%s", titleCase(topic), strings.TrimSpace(reply))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Recall: %s\n", titleCase(topic))
	b.WriteString("Answer each question in your head before reading the answer.\n")
	for i, c := range cards {
		fmt.Fprintf(&b, "\nQ%d: %s\nA%d: %s\n", i+1, c.Front, i+1, c.Back)
	}
	b.WriteString("\nRevisit these later; spaced repetition works best.")
	return b.String()
}
