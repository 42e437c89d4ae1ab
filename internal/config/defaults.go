package config

import (
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			MaxIterations:           7,
			NumNextStepsDecision:    5,
			MaxQueryFixingRetry:     3,
			MaxRetrieveQueryRetry:   3,
			MaxFinalSolutionParsing: 3,
			MaxToolRetries:          2,
			MaxLLMRetries:           3,
			RetrievalMode:           "query",
		},
		Graph: graph.Config{
			Backend:           "memory",
			ConnectionTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Planning: llm.ProviderConfig{
				Type:         "openai",
				DefaultModel: "gpt-4o-mini",
			},
			Execution: llm.ProviderConfig{
				Type:         "openai",
				DefaultModel: "gpt-4o-mini",
			},
			RetryBackoff: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
