package tool

import "fmt"

// DuplicateToolError is returned when a name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// UnknownToolError is returned when a lookup names no registered tool.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// SchemaValidationError reports the first parameter that failed validation.
type SchemaValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %s.%s: %s", e.Tool, e.Field, e.Reason)
}

// ToolExecutionError wraps any failure raised while a tool runs.
type ToolExecutionError struct {
	Tool  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }
