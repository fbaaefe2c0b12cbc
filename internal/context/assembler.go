package context

import "strings"

// StandardAssembler emits, in this order: persona, user context block,
// history, current user message. An empty context block is omitted.
type StandardAssembler struct{}

func (a *StandardAssembler) Assemble(persona, userContext string, history []Message, userMsg string) []Message {
	messages := make([]Message, 0, 2+len(history)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: persona})
	if strings.TrimSpace(userContext) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: userContext})
	}
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: userMsg})
	return messages
}
