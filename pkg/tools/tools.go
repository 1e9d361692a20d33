// Package tools defines model-callable tools and their JSON-schema descriptions.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Property describes one parameter in a tool's input schema.
type Property struct {
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"`
	Maximum     *float64             `json:"maximum,omitempty"`
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
}

// InputSchema is the JSON-schema object a tool accepts.
type InputSchema struct {
	Properties map[string]Property `json:"properties"`
	Type       string              `json:"type"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is what the model sees: name, description, and parameters.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// Tool is a capability the model may invoke during a turn.
type Tool interface {
	// Name returns the tool identifier.
	Name() string
	// Definition returns the schema shown to the model.
	Definition() ToolDefinition
	// Exec runs the tool. A returned error is reported back to the model as a failed call.
	Exec(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds the tools offered for one turn.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry returns a registry containing the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		r.tools[t.Name()] = t
	}
	return r
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	return tool, nil
}

// Definitions returns every tool definition sorted by name.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Schema renders the property as a JSON-schema map.
func (p *Property) Schema() map[string]any {
	schema := map[string]any{"type": p.Type}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		schema["enum"] = p.Enum
	}
	if p.Minimum != nil {
		schema["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		schema["maximum"] = *p.Maximum
	}
	if p.Type == "array" && p.Items != nil {
		schema["items"] = p.Items.Schema()
	}
	if p.Type == "object" && p.Properties != nil {
		props := make(map[string]any, len(p.Properties))
		for name, child := range p.Properties {
			if child != nil {
				props[name] = child.Schema()
			}
		}
		schema["properties"] = props
	}
	return schema
}

// PropertySchemas renders every top-level property as a JSON-schema map.
func (s *InputSchema) PropertySchemas() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name := range s.Properties {
		prop := s.Properties[name]
		props[name] = prop.Schema()
	}
	return props
}

// JSONSchema renders the full object schema.
func (s *InputSchema) JSONSchema() map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": s.PropertySchemas(),
	}
	if len(s.Required) > 0 {
		schema["required"] = s.Required
	}
	return schema
}
