package context

// Provider retrieves conversation history from a persistent store.
type Provider interface {
	GetHistory(limit int) ([]Message, error)
}

// Assembler combines persona, user context, history and the user message
// into a final message list.
type Assembler interface {
	Assemble(persona, userContext string, history []Message, userMsg string) []Message
}
