package controller

import (
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// IterationState is a value snapshot of the loop after one decision
// round, used for logging and diagnostics.
type IterationState struct {
	// Iteration is the zero-based cycle index
	Iteration int `json:"iteration"`

	// Tally is this round's vote outcome
	Tally VoteTally `json:"tally"`

	// UsageSoFar is the accumulated token usage up to this point
	UsageSoFar llm.TokenUsage `json:"usage_so_far"`

	// ToolInvocations is the number of tool attempts recorded so far
	ToolInvocations int `json:"tool_invocations"`
}

func (c *Controller) iterationState(iteration int, tally VoteTally) IterationState {
	return IterationState{
		Iteration:       iteration,
		Tally:           tally,
		UsageSoFar:      c.usage.Total(),
		ToolInvocations: len(c.invoker.History()),
	}
}
