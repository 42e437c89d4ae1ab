package llm

import (
	"encoding/json"
	"fmt"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Role represents the role of a message in a conversation
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// String returns the string representation of the Role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a valid value
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message represents a single message in a conversation with an LLM.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewSystemMessage creates a new system message
func NewSystemMessage(content string) Message {
	return Message{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message
func NewUserMessage(content string) Message {
	return Message{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message
func NewAssistantMessage(content string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

// NewToolResultMessage creates a new tool result message
func NewToolResultMessage(toolCallID string, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
	}
}

// Validate checks if the message is valid
func (m Message) Validate() error {
	if !m.Role.IsValid() {
		return types.NewError(ErrInvalidMessage, "invalid role: "+string(m.Role))
	}

	switch m.Role {
	case RoleSystem, RoleUser:
		if m.Content == "" {
			return types.NewError(ErrInvalidMessage, string(m.Role)+" message must have content")
		}
	case RoleAssistant:
		if m.Content == "" && len(m.ToolCalls) == 0 {
			return types.NewError(ErrInvalidMessage, "assistant message must have content or tool calls")
		}
	case RoleTool:
		if m.Content == "" {
			return types.NewError(ErrInvalidMessage, "tool message must have content")
		}
		if m.ToolCallID == "" {
			return types.NewError(ErrInvalidMessage, "tool message must have tool_call_id")
		}
	}

	return nil
}

// ToolDef defines a tool that an LLM can call during completion.
type ToolDef struct {
	// Name is the unique identifier for this tool
	Name string `json:"name"`

	// Description explains what the tool does and when to use it
	Description string `json:"description"`

	// Parameters defines the JSON schema for the tool's input parameters
	Parameters map[string]any `json:"parameters"`
}

// Validate checks if the tool definition is valid
func (t ToolDef) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}

	if t.Description == "" {
		return fmt.Errorf("tool description is required")
	}

	return nil
}

// ToolCall represents a tool call made by the LLM during completion.
// The LLM specifies which tool to call and what arguments to provide.
type ToolCall struct {
	// ID is a unique identifier for this tool call
	ID string `json:"id"`

	// Type indicates the type of tool call (typically "function")
	Type string `json:"type"`

	// Name is the name of the tool to call
	Name string `json:"name"`

	// Arguments contains the JSON-encoded arguments for the tool
	Arguments string `json:"arguments"`
}

// ParseArguments deserializes the tool call arguments into a generic map.
// Empty arguments decode to an empty map rather than an error so that
// zero-argument tools remain invocable.
func (t ToolCall) ParseArguments() (map[string]any, error) {
	if t.Arguments == "" {
		return map[string]any{}, nil
	}

	args := make(map[string]any)
	if err := json.Unmarshal([]byte(t.Arguments), &args); err != nil {
		return nil, fmt.Errorf("failed to parse tool call arguments: %w", err)
	}

	return args, nil
}

// CompletionRequest represents a request to generate a completion
type CompletionRequest struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	Temperature   float64   `json:"temperature,omitempty"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	JSONMode      bool      `json:"json_mode,omitempty"`
}

// Validate checks if the completion request is valid
func (r CompletionRequest) Validate() error {
	if r.Model == "" {
		return NewInvalidRequestError("model is required")
	}

	if len(r.Messages) == 0 {
		return NewInvalidRequestError("at least one message is required")
	}

	for i, msg := range r.Messages {
		if err := msg.Validate(); err != nil {
			return types.WrapError(ErrInvalidMessage, fmt.Sprintf("message %d invalid", i), err)
		}
	}

	if r.Temperature < 0 || r.Temperature > 1 {
		return NewInvalidRequestError(fmt.Sprintf("temperature must be between 0 and 1, got %f", r.Temperature))
	}

	if r.MaxTokens < 0 {
		return NewInvalidRequestError(fmt.Sprintf("max_tokens must be non-negative, got %d", r.MaxTokens))
	}

	return nil
}

// FinishReason indicates why LLM generation stopped
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
)

// String returns the string representation of FinishReason
func (f FinishReason) String() string {
	return string(f)
}

// CompletionResponse represents the response from an LLM completion request
type CompletionResponse struct {
	// ID is a unique identifier for this completion
	ID string `json:"id"`

	// Model is the model that generated this response
	Model string `json:"model"`

	// Message is the assistant's response message
	Message Message `json:"message"`

	// FinishReason indicates why generation stopped
	FinishReason FinishReason `json:"finish_reason"`

	// Usage contains token usage statistics for this completion
	Usage TokenUsage `json:"usage"`
}

// TokenUsage contains token usage statistics for an LLM completion.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used
	TotalTokens int `json:"total_tokens"`
}

// Add accumulates another usage sample into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
