package session

import (
	"regexp"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/intent"
	"github.com/stupiduntilnot/studbot/internal/tool"
)

// MaxTopicsPerTurn bounds how many topics one exchange may add.
const MaxTopicsPerTurn = 2

const maxTopicWords = 6

// studyPatterns name the topic explicitly.
var studyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bquiz me (?:on|about) (.+)`),
	regexp.MustCompile(`(?i)\btest me (?:on|about) (.+)`),
	regexp.MustCompile(`(?i)\bflashcards? (?:for|on|about) (.+)`),
	regexp.MustCompile(`(?i)\bhelp me (?:study|learn|understand) (.+)`),
	regexp.MustCompile(`(?i)^\s*(?:study|review|revise) (.+)`),
}

// topicIndicators precede a concept the user is trying to learn.
var topicIndicators = []string{
	"learn about", "concept of", "definition of", "theory of", "principle of",
	"process of", "method of", "technique of", "explain", "understand",
	"what is", "what are", "how does", "how do", "why does", "why do",
}

var leadingFiller = regexp.MustCompile(`(?i)^(?:the|a|an|to|how|why|what|is|are|does|do|me|us)\s+`)

var clauseBreak = regexp.MustCompile(`[.?!,;:]`)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\s'+#-]`)

// ExtractTopics returns at most MaxTopicsPerTurn topic phrases from a turn.
// The decision's topic parameter comes first, then explicit study requests,
// then phrases following an indicator such as "explain".
func ExtractTopics(utterance string, d intent.Decision) []string {
	var out []string
	add := func(raw string) {
		topic := cleanTopic(raw)
		if topic == "" || len(out) >= MaxTopicsPerTurn {
			return
		}
		for _, seen := range out {
			if strings.EqualFold(seen, topic) {
				return
			}
		}
		out = append(out, topic)
	}

	if !d.IsGeneralChat() {
		add(d.Params.String("topic"))
	}
	for _, re := range studyPatterns {
		if m := re.FindStringSubmatch(utterance); m != nil {
			add(m[1])
			break
		}
	}
	for _, ind := range topicIndicators {
		if rest, ok := tool.AfterPhrase(utterance, ind); ok {
			add(rest)
			break
		}
	}
	return out
}

func cleanTopic(raw string) string {
	s := raw
	if loc := clauseBreak.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = nonWord.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	for {
		trimmed := leadingFiller.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > maxTopicWords {
		return ""
	}
	if len(words) == 1 && len([]rune(words[0])) < 3 {
		return ""
	}
	if tool.IsFiller(s) {
		return ""
	}
	return s
}
