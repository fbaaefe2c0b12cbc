package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Runner validates and executes registered tools.
type Runner struct {
	registry *Registry
	timeout  time.Duration
}

func NewRunner(registry *Registry, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{registry: registry, timeout: timeout}
}

// Run looks up name, validates params against its schema and executes it
// under the runner timeout. Lookup and validation failures come back as
// *UnknownToolError / *SchemaValidationError; anything raised by the tool
// itself, including a panic, is wrapped in *ToolExecutionError.
func (r *Runner) Run(ctx context.Context, name string, params Params) (string, error) {
	if r == nil || r.registry == nil {
		return "", fmt.Errorf("tool runner is not initialized")
	}
	toolName := strings.TrimSpace(name)
	t, err := r.registry.Get(toolName)
	if err != nil {
		return "", err
	}
	if params == nil {
		params = Params{}
	}
	if err := t.Schema().Validate(params); err != nil {
		var sve *SchemaValidationError
		if errors.As(err, &sve) {
			sve.Tool = toolName
		}
		return "", err
	}

	toolCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := execute(toolCtx, t, params)
	if err != nil {
		return "", &ToolExecutionError{Tool: toolName, Cause: err}
	}
	return out, nil
}

func execute(ctx context.Context, t Tool, params Params) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Execute(ctx, params.Clone())
}
