// Package tools defines the static tool registry exposed to platform agents.
//
// Tools are plain data-lookup functions. Each agent type is bound to a fixed
// list of typed definitions at startup; the platform decides when to call
// them and this service only resolves the calls.
package tools

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Record is one structured result row returned by a tool.
type Record map[string]any

// Handler executes a tool call. Handlers mask external failures by returning
// an empty record list; they never surface errors to the platform.
type Handler func(ctx context.Context, args map[string]any) []Record

// Definition describes one callable tool function.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema for the arguments object
	Handler     Handler
}

// Registry maps agent types to their fixed toolsets.
type Registry struct {
	sets map[string][]Definition
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		sets: make(map[string][]Definition),
	}
}

// Register binds tool definitions to an agent type.
func (r *Registry) Register(agentType string, defs ...Definition) {
	r.sets[agentType] = append(r.sets[agentType], defs...)
}

// Toolset returns the tool definitions bound to an agent type.
// Agent types with no tools get an empty set.
func (r *Registry) Toolset(agentType string) []Definition {
	return r.sets[agentType]
}

// Lookup finds a definition by name within an agent type's toolset.
func (r *Registry) Lookup(agentType, name string) (Definition, bool) {
	for _, def := range r.sets[agentType] {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Validate checks every registered definition at startup: names must be
// non-empty and unique per toolset, handlers non-nil, and parameter schemas
// present.
func (r *Registry) Validate() error {
	var result error

	for agentType, defs := range r.sets {
		seen := make(map[string]bool, len(defs))
		for _, def := range defs {
			if def.Name == "" {
				result = multierror.Append(result, fmt.Errorf("agent type %s has a tool with an empty name", agentType))
				continue
			}
			if seen[def.Name] {
				result = multierror.Append(result, fmt.Errorf("agent type %s registers tool %s twice", agentType, def.Name))
			}
			seen[def.Name] = true

			if def.Handler == nil {
				result = multierror.Append(result, fmt.Errorf("tool %s for agent type %s has no handler", def.Name, agentType))
			}
			if def.Parameters == nil {
				result = multierror.Append(result, fmt.Errorf("tool %s for agent type %s has no parameter schema", def.Name, agentType))
			}
		}
	}

	return result
}

// ObjectSchema builds a JSON schema for an object with the given properties.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringArg extracts a string argument, returning "" when absent or mistyped.
func StringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// NumberArg extracts a numeric argument, returning 0 when absent or mistyped.
func NumberArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
