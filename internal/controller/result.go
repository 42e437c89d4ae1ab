package controller

import (
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/tool"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusSolved means a solution was produced within the budget
	StatusSolved Status = "solved"

	// StatusUnresolved means the iteration budget ran out; the forced
	// best-effort answer, if any, is still reported
	StatusUnresolved Status = "unresolved"

	// StatusFailed means a fatal configuration or infrastructure error
	StatusFailed Status = "failed"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Result summarizes one run.
type Result struct {
	// RunID identifies the run (snapshots are grouped under it)
	RunID types.ID `json:"run_id"`

	// Status is the terminal outcome
	Status Status `json:"status"`

	// Solution is the produced answer, possibly empty for failed runs
	Solution string `json:"solution,omitempty"`

	// Iterations is the number of decide/act cycles performed
	Iterations int `json:"iterations"`

	// Votes records the tally of every decision round
	Votes []VoteTally `json:"votes,omitempty"`

	// Usage is the accumulated token usage across all LLM calls
	Usage llm.TokenUsage `json:"usage"`

	// LLMCalls is the total number of completions requested
	LLMCalls int `json:"llm_calls"`

	// ToolHistory records every tool invocation attempt
	ToolHistory []tool.Invocation `json:"tool_history,omitempty"`

	// Duration is the total wall-clock time of the run
	Duration time.Duration `json:"duration"`

	// Err carries the fatal error for failed runs
	Err error `json:"-"`
}

// Solved reports whether the run produced a solution within budget.
func (r *Result) Solved() bool {
	return r.Status == StatusSolved
}
