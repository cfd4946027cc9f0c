package tool

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
)

// Registry maps tool names to tools, keeping declaration order so the tool
// list sent to the backend is stable. Registration is not safe for
// concurrent use; lookups are once registration is finished.
type Registry struct {
	tools *orderedmap.OrderedMap[string, Tool]
}

// NewRegistry creates a registry holding tools. Duplicate or empty names fail
// with core.ErrInvalidConfig.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: orderedmap.New[string, Tool]()}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t to the registry.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("%w: nil tool", core.ErrInvalidConfig)
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("%w: tool name must not be empty", core.ErrInvalidConfig)
	}
	if _, exists := r.tools.Get(name); exists {
		return fmt.Errorf("%w: duplicate tool name %q", core.ErrInvalidConfig, name)
	}
	r.tools.Set(name, t)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	return r.tools.Get(name)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return r.tools.Len() }

// Names returns tool names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Tools returns the tools in declaration order.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		tools = append(tools, pair.Value)
	}
	return tools
}

// Definitions returns the backend declarations in declaration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	if r.tools.Len() == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		defs = append(defs, Definition(pair.Value))
	}
	return defs
}
