package config

import (
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// Config is the root configuration for a solver run.
type Config struct {
	Controller ControllerConfig `mapstructure:"controller" validate:"required"`
	Graph      graph.Config     `mapstructure:"graph" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Snapshots  SnapshotConfig   `mapstructure:"snapshots"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ControllerConfig carries the run budgets and pathway switches.
type ControllerConfig struct {
	// MaxIterations bounds the decide/act loop.
	MaxIterations int `mapstructure:"max_iterations" validate:"min=1,max=100"`

	// NumNextStepsDecision is how many next-step judgments are sampled
	// per iteration for the majority vote.
	NumNextStepsDecision int `mapstructure:"num_next_steps_decision" validate:"min=1,max=25"`

	// MaxQueryFixingRetry bounds repair attempts per failed graph query.
	MaxQueryFixingRetry int `mapstructure:"max_query_fixing_retry" validate:"min=0,max=10"`

	// MaxRetrieveQueryRetry bounds fresh retrieval query generations
	// after a query is abandoned or returns nothing.
	MaxRetrieveQueryRetry int `mapstructure:"max_retrieve_query_retry" validate:"min=0,max=10"`

	// MaxFinalSolutionParsing bounds attempts to parse a structured
	// final solution from model output.
	MaxFinalSolutionParsing int `mapstructure:"max_final_solution_parsing" validate:"min=1,max=10"`

	// MaxToolRetries bounds retries of a transiently failing tool call.
	MaxToolRetries int `mapstructure:"max_tool_retries" validate:"min=0,max=10"`

	// MaxLLMRetries bounds retries of a retryable LLM invocation.
	MaxLLMRetries int `mapstructure:"max_llm_retries" validate:"min=0,max=10"`

	// RetrievalMode selects how SOLVE reads the graph: "direct" embeds
	// the rendered state, "query" asks the model for read queries.
	RetrievalMode string `mapstructure:"retrieval_mode" validate:"oneof=direct query"`

	// GAIAFormatter post-formats the final answer for exact-match
	// benchmark scoring.
	GAIAFormatter bool `mapstructure:"gaia_formatter"`

	// NumericRefinement enables the optional math adjustment step on
	// numeric answers.
	NumericRefinement bool `mapstructure:"numeric_refinement"`
}

// LLMConfig names the two model roles. The planning model writes and
// repairs queries; the execution model drives tool calls and answers.
type LLMConfig struct {
	Planning  llm.ProviderConfig `mapstructure:"planning" validate:"required"`
	Execution llm.ProviderConfig `mapstructure:"execution" validate:"required"`

	// Temperature applies to both roles unless zero.
	Temperature float64 `mapstructure:"temperature" validate:"min=0,max=1"`

	// RetryBackoff is the initial delay between LLM retries.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// SnapshotConfig controls per-iteration graph exports.
type SnapshotConfig struct {
	// Dir is the root snapshot directory. Empty disables snapshots.
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}
