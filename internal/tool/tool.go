package tool

import (
	"context"
)

// Tool represents an atomic, stateless capability the execution model
// can call while enhancing the graph. Implementations must be safe for
// concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool
	// does, surfaced to the model when choosing tools
	Description() string

	// Parameters returns the JSON schema for the tool's arguments, fed
	// into the LLM tool-calling schema
	Parameters() map[string]any

	// Execute runs the tool. The returned string is the observation
	// handed back to the model.
	Execute(ctx context.Context, args map[string]any) (string, error)
}
