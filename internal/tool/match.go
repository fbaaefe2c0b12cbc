package tool

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// leadingPrepositions are dropped from the front of an extracted argument,
// so "quiz me on biology" yields "biology".
var leadingPrepositions = []string{"on", "about", "for", "of"}

// AfterPhrase looks for the first of phrases that occurs in utterance as
// whole words (case-insensitive) and returns the cleaned text that follows
// it. ok is false when no phrase occurs; the remainder may still be empty.
func AfterPhrase(utterance string, phrases ...string) (rest string, ok bool) {
	lower := strings.ToLower(utterance)
	if len(lower) != len(utterance) {
		// Case mapping changed byte offsets; fall back to the folded text.
		utterance = lower
	}
	for _, phrase := range phrases {
		idx := indexWord(lower, strings.ToLower(phrase))
		if idx < 0 {
			continue
		}
		return CleanArgument(utterance[idx+len(phrase):]), true
	}
	return "", false
}

// ContainsWord reports whether phrase occurs in s as whole words.
func ContainsWord(s, phrase string) bool {
	return indexWord(strings.ToLower(s), strings.ToLower(phrase)) >= 0
}

func indexWord(s, phrase string) int {
	if phrase == "" {
		return -1
	}
	from := 0
	for from <= len(s) {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(phrase)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return start
		}
		from = start + 1
	}
	return -1
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// CleanArgument trims whitespace, one leading preposition, surrounding
// quotes and trailing sentence punctuation.
func CleanArgument(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimLeft(s, ":,"))
	fields := strings.Fields(s)
	if len(fields) > 1 {
		for _, p := range leadingPrepositions {
			if strings.EqualFold(fields[0], p) {
				s = strings.TrimSpace(s[len(fields[0]):])
				break
			}
		}
	} else if len(fields) == 1 {
		for _, p := range leadingPrepositions {
			if strings.EqualFold(fields[0], p) {
				return ""
			}
		}
	}
	s = strings.TrimRight(s, "?!. ")
	s = strings.Trim(s, "\"'`")
	return strings.TrimSpace(s)
}

// fillerWords never make a useful argument on their own.
var fillerWords = map[string]bool{
	"it": true, "this": true, "that": true, "these": true, "those": true,
	"something": true, "anything": true, "everything": true, "stuff": true,
	"things": true, "thing": true, "more": true, "again": true, "me": true,
	"us": true, "you": true, "is": true, "are": true, "do": true, "does": true,
	"please": true, "now": true, "here": true, "there": true, "why": true,
	"how": true, "what": true, "so": true, "better": true, "a": true,
	"an": true, "the": true, "some": true, "one": true, "thanks": true,
}

// IsFiller reports whether every word of s is a filler word, as in the
// "please" left over from "give me a quiz please". Empty s counts as filler.
func IsFiller(s string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !fillerWords[strings.Trim(w, "?!.,;:'\"")] {
			return false
		}
	}
	return true
}
