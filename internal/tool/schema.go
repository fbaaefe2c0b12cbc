package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ParamType is the declared primitive type of a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeEnum    ParamType = "enum"
)

// Param describes one named input of a tool.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Enum        []string  `json:"enum,omitempty"`
	Integer     bool      `json:"integer,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Schema is the structural input contract of a tool. Order is preserved
// so prompts list parameters the way the tool declares them.
type Schema struct {
	Params []Param `json:"params"`
}

// Lookup returns the parameter declaration for name.
func (s Schema) Lookup(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Required lists the names of required parameters in declaration order.
func (s Schema) Required() []string {
	var out []string
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Validate checks params against the schema. Required string parameters
// must be non-blank.
func (s Schema) Validate(params Params) error {
	for _, p := range s.Params {
		v, ok := params[p.Name]
		if !ok || v == nil {
			if p.Required {
				return &SchemaValidationError{Field: p.Name, Reason: "missing required field"}
			}
			continue
		}
		if err := p.check(v); err != nil {
			return err
		}
	}
	for name := range params {
		if _, ok := s.Lookup(name); !ok {
			return &SchemaValidationError{Field: name, Reason: "unknown parameter"}
		}
	}
	return nil
}

func (p Param) check(v any) error {
	switch p.Type {
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return p.typeErr(v)
		}
		if p.Required && strings.TrimSpace(str) == "" {
			return &SchemaValidationError{Field: p.Name, Reason: "must not be empty"}
		}
	case TypeNumber:
		n, ok := toFloat(v)
		if !ok {
			return p.typeErr(v)
		}
		if p.Integer && math.Trunc(n) != n {
			return &SchemaValidationError{Field: p.Name, Reason: "must be an integer"}
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return p.typeErr(v)
		}
	case TypeEnum:
		str, ok := v.(string)
		if !ok {
			return p.typeErr(v)
		}
		if !slices.Contains(p.Enum, str) {
			return &SchemaValidationError{
				Field:  p.Name,
				Reason: fmt.Sprintf("must be one of %s", strings.Join(p.Enum, "|")),
			}
		}
	default:
		return &SchemaValidationError{Field: p.Name, Reason: fmt.Sprintf("unsupported type %q", p.Type)}
	}
	return nil
}

func (p Param) typeErr(v any) error {
	return &SchemaValidationError{Field: p.Name, Reason: fmt.Sprintf("expected %s but got %T", p.Type, v)}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Describe renders the schema as a compact single line for prompts,
// e.g. `topic:string (required), level:enum[easy|medium|hard]`.
func (s Schema) Describe() string {
	if len(s.Params) == 0 {
		return "(no parameters)"
	}
	parts := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		typ := string(p.Type)
		if p.Type == TypeEnum {
			typ += "[" + strings.Join(p.Enum, "|") + "]"
		}
		part := p.Name + ":" + typ
		if p.Required {
			part += " (required)"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
