package studytool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

var mathPhrases = []string{"calculate", "compute", "evaluate", "solve", "math"}

// Math evaluates arithmetic locally and hands anything else (equations,
// word problems) to the completion service for a worked solution.
type Math struct {
	completer Completer
}

// NewMath accepts a nil Completer; only local arithmetic is available then.
func NewMath(c Completer) *Math {
	return &Math{completer: c}
}

func (m *Math) Name() string { return NameMath }

func (m *Math) Description() string {
	return "Solve a math expression or problem, showing the steps."
}

func (m *Math) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "expression", Type: tool.TypeString, Required: true},
	}}
}

func (m *Math) Match(utterance string) (tool.Params, bool) {
	if expr, ok := tool.AfterPhrase(utterance, mathPhrases...); ok && expr != "" {
		return tool.Params{"expression": expr}, true
	}
	expr := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(utterance), "=?"))
	if rest, ok := tool.AfterPhrase(expr, "what is", "what's"); ok {
		expr = rest
	}
	if _, err := evaluate(expr); err == nil && strings.ContainsAny(expr, "+-*/^%") {
		return tool.Params{"expression": expr}, true
	}
	return nil, false
}

func (m *Math) Execute(ctx context.Context, params tool.Params) (string, error) {
	expr := strings.TrimSpace(params.String("expression"))
	v, err := evaluate(expr)
	if err == nil {
		return fmt.Sprintf("%s = %s", expr, formatNumber(v)), nil
	}
	if !errors.Is(err, errNotArithmetic) || m.completer == nil {
		return "", fmt.Errorf("cannot evaluate %q: %w", expr, err)
	}
	prompt := fmt.Sprintf("Solve step by step, then state the final answer on its own line:\n\n%s", expr)
	return m.completer.Complete(ctx, prompt)
}
