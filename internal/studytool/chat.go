package studytool

import (
	"context"
	"fmt"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

// Chat answers a free-form question. The resolver routes general chat to
// the composer directly; registering it keeps it visible in tool listings.
type Chat struct {
	completer Completer
}

func NewChat(c Completer) (*Chat, error) {
	if c == nil {
		return nil, fmt.Errorf("chat: %w", errNoCompleter)
	}
	return &Chat{completer: c}, nil
}

func (c *Chat) Name() string { return NameChat }

func (c *Chat) Description() string {
	return "Answer general study questions conversationally."
}

func (c *Chat) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "message", Type: tool.TypeString, Required: true},
	}}
}

func (c *Chat) Execute(ctx context.Context, params tool.Params) (string, error) {
	return c.completer.Complete(ctx, params.String("message"))
}
