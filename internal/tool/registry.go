package tool

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is the prompt-facing description of a registered tool.
type Entry struct {
	Name        string
	Description string
	Schema      Schema
}

// Registry stores tools by unique name and remembers registration order.
// A second registration under an existing name is rejected.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: map[string]Tool{},
	}
}

func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if name != t.Name() {
		return fmt.Errorf("tool name has surrounding whitespace: %q", t.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas returns name -> input schema for every registered tool.
func (r *Registry) Schemas() map[string]Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Schema, len(r.tools))
	for name, t := range r.tools {
		out[name] = t.Schema()
	}
	return out
}

// Catalog returns prompt entries in registration order.
func (r *Registry) Catalog() []Entry {
	tools := r.List()
	out := make([]Entry, 0, len(tools))
	for _, t := range tools {
		out = append(out, Entry{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return out
}

// Rebuild replaces the registry content with tools. The swap happens only
// when every tool registers cleanly.
func (r *Registry) Rebuild(tools []Tool) error {
	next := NewRegistry()
	for _, t := range tools {
		if err := next.Register(t); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = next.tools
	r.order = next.order
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
