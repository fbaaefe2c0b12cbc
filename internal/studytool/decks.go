package studytool

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/stupiduntilnot/studbot/internal/userctx"
)

// DefaultDeck holds cards saved without a deck name.
const DefaultDeck = "default"

// SavedCard is one flashcard kept in a deck.
type SavedCard struct {
	Deck      string    `json:"deck"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DeckCount is a deck name and how many cards it holds.
type DeckCount struct {
	Name  string
	Cards int
}

// DeckStore keeps saved flashcards in a JSON file next to the user context.
// An empty path keeps them in memory only.
type DeckStore struct {
	path string

	mu     sync.Mutex
	cards  []SavedCard
	loaded bool
}

func NewDeckStore(path string) *DeckStore {
	return &DeckStore{path: strings.TrimSpace(path)}
}

func (s *DeckStore) Path() string { return s.path }

// load reads the file once. A missing file is an empty store.
func (s *DeckStore) load() error {
	if s.loaded {
		return nil
	}
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read flashcards %s: %w", s.path, err)
		case len(strings.TrimSpace(string(data))) > 0:
			if err := json.Unmarshal(data, &s.cards); err != nil {
				return fmt.Errorf("parse flashcards %s: %w", s.path, err)
			}
		}
	}
	s.loaded = true
	return nil
}

// Add appends cards and writes the file.
func (s *DeckStore) Add(cards ...SavedCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	next := append(append([]SavedCard(nil), s.cards...), cards...)
	if s.path != "" {
		data, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return fmt.Errorf("encode flashcards: %w", err)
		}
		if err := userctx.WriteFileAtomic(s.path, data); err != nil {
			return fmt.Errorf("save flashcards: %w", err)
		}
	}
	s.cards = next
	return nil
}

// Deck returns the cards of the named deck, matched case-insensitively.
// ok is false when no card was ever saved to it.
func (s *DeckStore) Deck(name string) (cards []SavedCard, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, false, err
	}
	for _, c := range s.cards {
		if strings.EqualFold(c.Deck, name) {
			cards = append(cards, c)
		}
	}
	return cards, len(cards) > 0, nil
}

// Decks lists every deck in the order it was first saved to.
func (s *DeckStore) Decks() ([]DeckCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	var out []DeckCount
	index := map[string]int{}
	for _, c := range s.cards {
		key := strings.ToLower(c.Deck)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, DeckCount{Name: c.Deck})
		}
		out[i].Cards++
	}
	return out, nil
}
