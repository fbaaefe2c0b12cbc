// Package intent turns an utterance into a validated routing decision.
package intent

import "github.com/stupiduntilnot/studbot/internal/tool"

// GeneralChat is the Decision.Tool value meaning "no tool; just talk".
const GeneralChat = "general_chat"

// chatAliases are model replies that also mean general chat.
var chatAliases = map[string]bool{
	"":             true,
	"chat":         true,
	"none":         true,
	"null":         true,
	"no_tool":      true,
	"conversation": true,
	GeneralChat:    true,
}

type Outcome string

const (
	OutcomeMatched          Outcome = "matched"
	OutcomeNoMatch          Outcome = "no_match"
	OutcomeUnknownTool      Outcome = "unknown_tool"
	OutcomeInvalidParams    Outcome = "invalid_params"
	OutcomeCompletionFailed Outcome = "completion_failed"
	OutcomeOfflineMatch     Outcome = "offline_match"
)

// Decision is the resolver's answer. Params of a tool decision have already
// passed that tool's schema.
type Decision struct {
	Tool       string
	Params     tool.Params
	Outcome    Outcome
	Confidence float64
	// Notice, when set, is shown to the user instead of a generated reply.
	Notice string
}

func (d Decision) IsGeneralChat() bool { return d.Tool == GeneralChat }

func generalChat(outcome Outcome) Decision {
	return Decision{Tool: GeneralChat, Params: tool.Params{}, Outcome: outcome}
}
