package context

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a model-agnostic chat message used across the context pipeline.
// A conversation turn is a Message with a user or assistant role.
type Message struct {
	Role    string
	Content string
	At      time.Time
}
