package tool

import "context"

// Params is a decoded parameter mapping. Numbers arrive as float64.
type Params map[string]any

// Tool is the common abstraction for every study tool.
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, params Params) (string, error)
}

// Matcher is implemented by tools that can recognise their own intent
// without a model, used when the completion service is bypassed.
type Matcher interface {
	Match(utterance string) (Params, bool)
}

// String returns the string value of key, or "" when absent or not a string.
func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the numeric value of key truncated to int, or fallback.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// Bool returns the boolean value of key, or fallback.
func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

// Clone returns a shallow copy; a nil receiver yields an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
