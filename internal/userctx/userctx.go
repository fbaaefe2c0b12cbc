// Package userctx owns the persistent user context: profile, learning
// preferences, recently important topics and the last session summary.
package userctx

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// DefaultTopicLimit is the topic-set bound used when none is configured.
const DefaultTopicLimit = 20

// UserContext is a detached copy of the stored user state.
type UserContext struct {
	Profile         map[string]string
	Preferences     map[string]string
	ImportantTopics []string
	SessionSummary  string
	LastUpdated     time.Time
}

func defaults() UserContext {
	return UserContext{
		Profile:         map[string]string{},
		Preferences:     map[string]string{},
		ImportantTopics: []string{},
	}
}

func (c UserContext) clone() UserContext {
	out := UserContext{
		Profile:         maps.Clone(c.Profile),
		Preferences:     maps.Clone(c.Preferences),
		ImportantTopics: slices.Clone(c.ImportantTopics),
		SessionSummary:  c.SessionSummary,
		LastUpdated:     c.LastUpdated,
	}
	if out.Profile == nil {
		out.Profile = map[string]string{}
	}
	if out.Preferences == nil {
		out.Preferences = map[string]string{}
	}
	if out.ImportantTopics == nil {
		out.ImportantTopics = []string{}
	}
	return out
}

// RecentTopics returns up to n most recent topics, oldest first.
func (c UserContext) RecentTopics(n int) []string {
	if n <= 0 || len(c.ImportantTopics) <= n {
		return slices.Clone(c.ImportantTopics)
	}
	return slices.Clone(c.ImportantTopics[len(c.ImportantTopics)-n:])
}

// Profile keys the prompt block calls out by name.
const (
	KeyName       = "name"
	KeyStudyLevel = "study_level"
	KeySubjects   = "subjects"
)

// PromptBlock renders the parts of the context that shape tone and level.
// It returns "" when there is nothing worth telling the model.
func (c UserContext) PromptBlock(maxTopics int) string {
	var b strings.Builder
	if name, level, subjects := c.Profile[KeyName], c.Profile[KeyStudyLevel], c.Profile[KeySubjects]; name != "" || level != "" || subjects != "" {
		b.WriteString("User Profile Context:\n")
		if name != "" {
			fmt.Fprintf(&b, "- User's name: %s\n", name)
		}
		if level != "" {
			fmt.Fprintf(&b, "- Study level: %s\n", level)
		}
		if subjects != "" {
			fmt.Fprintf(&b, "- Main subjects: %s\n", subjects)
		}
	}
	if len(c.Preferences) > 0 {
		b.WriteString("Learning Preferences:\n")
		keys := make([]string, 0, len(c.Preferences))
		for k := range c.Preferences {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, c.Preferences[k])
		}
	}
	if topics := c.RecentTopics(maxTopics); len(topics) > 0 {
		b.WriteString("Important Topics for this user:\n")
		fmt.Fprintf(&b, "- %s\n", strings.Join(topics, ", "))
	}
	if c.SessionSummary != "" {
		b.WriteString("Previous session summary:\n")
		fmt.Fprintf(&b, "- %s\n", c.SessionSummary)
	}
	return strings.TrimRight(b.String(), "\n")
}
