package providers

import (
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// New constructs a provider for the configured type.
func New(cfg llm.ProviderConfig) (llm.Provider, error) {
	switch cfg.Type {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, llm.NewProviderNotFoundError(cfg.Type)
	}
}
