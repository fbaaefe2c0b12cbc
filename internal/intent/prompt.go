package intent

import (
	"fmt"
	"strings"

	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
	"github.com/stupiduntilnot/studbot/internal/tool"
	"github.com/stupiduntilnot/studbot/internal/userctx"
)

// BuildRoutingPrompt renders the routing request: a system message with
// the tool catalog, user context, reply contract and recent turns, then the
// utterance as the user message.
func BuildRoutingPrompt(catalog []tool.Entry, snapshot userctx.UserContext, history []ctxpkg.Message, utterance string) []ctxpkg.Message {
	var b strings.Builder
	b.WriteString("You route a student's message to one study tool, or to general chat.\n\nAvailable tools:\n")
	for _, e := range catalog {
		if isChatTool(e.Name) {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s Parameters: %s\n", e.Name, e.Description, e.Schema.Describe())
	}

	if summary := contextSummary(snapshot); summary != "" {
		b.WriteString("\nAbout the user:\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, excerpt(m.Content))
		}
	}

	b.WriteString("\nRespond with JSON only, exactly this shape:\n")
	b.WriteString(`{"tool": "<tool name or chat>", "parameters": {...}}`)
	b.WriteString("\nUse \"chat\" with empty parameters when no tool fits. ")
	b.WriteString("Only use parameters listed for the chosen tool; fill every required one.")

	return []ctxpkg.Message{
		{Role: ctxpkg.RoleSystem, Content: b.String()},
		{Role: ctxpkg.RoleUser, Content: utterance},
	}
}

// contextSummary is the compact, single-line-per-fact view of the user used
// for routing. The full block goes to the composer instead.
func contextSummary(c userctx.UserContext) string {
	var lines []string
	if v := c.Profile[userctx.KeyName]; v != "" {
		lines = append(lines, "name: "+v)
	}
	if v := c.Profile[userctx.KeyStudyLevel]; v != "" {
		lines = append(lines, "study level: "+v)
	}
	if v := c.Profile[userctx.KeySubjects]; v != "" {
		lines = append(lines, "subjects: "+v)
	}
	if topics := c.RecentTopics(defaultPromptTopics); len(topics) > 0 {
		lines = append(lines, "recent topics: "+strings.Join(topics, ", "))
	}
	return strings.Join(lines, "\n")
}
