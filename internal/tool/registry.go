package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Registry manages tool registration and discovery. Thread-safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Returns ErrToolAlreadyExists if the name is taken.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return types.NewError(ErrToolInvalidInput, "tool cannot be nil")
	}

	name := t.Name()
	if name == "" {
		return types.NewError(ErrToolInvalidInput, "tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return types.NewError(ErrToolAlreadyExists, fmt.Sprintf("tool %q already registered", name))
	}

	r.tools[name] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, types.NewError(ErrToolNotFound, fmt.Sprintf("tool %q not registered", name))
	}
	return t, nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions exports all registered tools as LLM tool definitions, in
// name order so prompts stay deterministic.
func (r *Registry) Definitions() []llm.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llm.ToolDef, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, llm.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}
