package studytool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

var (
	flashcardSavePhrases = []string{
		"anki flashcards", "anki cards", "anki", "save flashcards", "save flashcard",
		"deck of flashcards", "flashcard deck",
	}
	flashcardNouns     = []string{"flashcards", "flashcard", "decks", "deck", "anki"}
	flashcardListVerbs = []string{"list", "show", "display"}
)

// Flashcards generates cards into named decks that outlive the session,
// and lists what was saved.
type Flashcards struct {
	completer Completer
	decks     *DeckStore
	now       func() time.Time
}

func NewFlashcards(c Completer, decks *DeckStore) (*Flashcards, error) {
	if c == nil {
		return nil, fmt.Errorf("flashcards: %w", errNoCompleter)
	}
	if decks == nil {
		decks = NewDeckStore("")
	}
	return &Flashcards{completer: c, decks: decks, now: time.Now}, nil
}

func (f *Flashcards) Name() string { return NameFlashcards }

func (f *Flashcards) Description() string {
	return "Save generated flashcards to a named deck, or list saved decks and cards."
}

func (f *Flashcards) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "action", Type: tool.TypeEnum, Enum: []string{"generate", "list"}},
		{Name: "topic", Type: tool.TypeString, Description: "needed to generate"},
		{Name: "deck", Type: tool.TypeString},
		{Name: "count", Type: tool.TypeNumber, Integer: true, Description: "cards to generate, 1-10"},
	}}
}

func (f *Flashcards) Match(utterance string) (tool.Params, bool) {
	for _, verb := range flashcardListVerbs {
		if !tool.ContainsWord(utterance, verb) {
			continue
		}
		for _, noun := range flashcardNouns {
			if tool.ContainsWord(utterance, noun) {
				params := tool.Params{"action": "list"}
				if deck, ok := tool.AfterPhrase(utterance, "deck"); ok && deck != "" {
					params["deck"] = deck
				}
				return params, true
			}
		}
	}
	topic, ok := tool.AfterPhrase(utterance, flashcardSavePhrases...)
	if !ok || topic == "" {
		return nil, false
	}
	return tool.Params{"action": "generate", "topic": topic}, true
}

func (f *Flashcards) Execute(ctx context.Context, params tool.Params) (string, error) {
	deck := strings.TrimSpace(params.String("deck"))
	if params.String("action") == "list" {
		return f.list(deck)
	}
	if deck == "" {
		deck = DefaultDeck
	}
	return f.generate(ctx, strings.TrimSpace(params.String("topic")), deck, clamp(params.Int("count", 5), 1, 10))
}

func (f *Flashcards) generate(ctx context.Context, topic, deck string, count int) (string, error) {
	if topic == "" {
		return "", errors.New("flashcards: a topic is required to generate cards")
	}
	prompt := fmt.Sprintf("Generate %d flashcards on the topic '%s'. "+
		"Each card needs a 'front' (a question or term) and a 'back' (a concise answer or definition). "+
		"Return ONLY a JSON array of objects with 'front' and 'back' keys.", count, topic)
	reply, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	var parsed []card
	raw, ok := extractJSONArray(reply)
	if !ok || json.Unmarshal([]byte(raw), &parsed) != nil {
		return "", fmt.Errorf("flashcards: reply held no card list")
	}
	now := f.now().UTC()
	var cards []SavedCard
	for _, c := range parsed {
		front, back := strings.TrimSpace(c.Front), strings.TrimSpace(c.Back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, SavedCard{Deck: deck, Front: front, Back: back, Tags: []string{"generated", topic}, CreatedAt: now})
	}
	if len(cards) == 0 {
		return "", fmt.Errorf("flashcards: reply held no usable cards")
	}
	if err := f.decks.Add(cards...); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Saved %d flashcards on '%s' to deck '%s'.\n", len(cards), topic, deck)
	for i, c := range cards {
		fmt.Fprintf(&b, "\nQ%d: %s\nA%d: %s\n", i+1, c.Front, i+1, c.Back)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *Flashcards) list(deck string) (string, error) {
	if deck != "" {
		cards, ok, err := f.decks.Deck(deck)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf("Deck '%s' not found.", deck), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Deck '%s' (%d cards):\n", deck, len(cards))
		for i, c := range cards {
			fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, c.Front, c.Back)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	decks, err := f.decks.Decks()
	if err != nil {
		return "", err
	}
	if len(decks) == 0 {
		return "No flashcards saved yet.", nil
	}
	var b strings.Builder
	b.WriteString("Flashcard decks:")
	for _, d := range decks {
		fmt.Fprintf(&b, "\n- %s: %d cards", d.Name, d.Cards)
	}
	return b.String(), nil
}
