package llm

import "context"

// ProviderConfig holds the settings needed to construct a provider client.
type ProviderConfig struct {
	// Type selects the provider implementation ("openai" or "ollama")
	Type string `json:"type" mapstructure:"type"`

	// APIKey authenticates against the provider. Falls back to the
	// provider's environment variable when empty.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (proxies, local gateways)
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// DefaultModel is used when a request does not name a model
	DefaultModel string `json:"default_model" mapstructure:"default_model"`
}

// Provider abstracts an LLM backend. Implementations wrap a concrete
// client and translate its failures into the shared error taxonomy so
// retry decisions do not depend on which provider is configured.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "ollama")
	Name() string

	// Complete generates a completion for the given request
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CompleteWithTools generates a completion with tool calling enabled.
	// The returned message may carry tool calls instead of content.
	CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDef) (*CompletionResponse, error)
}
