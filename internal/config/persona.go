package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona overrides the assistant's system prompt and user-facing notices.
// Empty fields keep the built-in defaults.
type Persona struct {
	SystemPrompt      string `yaml:"system_prompt"`
	CompletionNotice  string `yaml:"completion_notice"`
	ToolFailureNotice string `yaml:"tool_failure_notice"`
}

// LoadPersona reads a persona YAML file. An empty path yields a zero Persona.
func LoadPersona(path string) (Persona, error) {
	var p Persona
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read STUDBOT_PERSONA_FILE: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Persona{}, fmt.Errorf("parse persona %s: %w", path, err)
	}
	p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)
	p.CompletionNotice = strings.TrimSpace(p.CompletionNotice)
	p.ToolFailureNotice = strings.TrimSpace(p.ToolFailureNotice)
	return p, nil
}
