package providers

import (
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// toSchemaMessages converts conversation messages to langchaingo
// MessageContent. Assistant tool calls and tool-role responses map to
// their structured parts, keeping multi-turn tool conversations intact.
func toSchemaMessages(messages []llm.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			result = append(result, llms.MessageContent{
				Role:  llms.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
			})

		case llm.RoleAssistant:
			parts := make([]llms.ContentPart, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				parts = append(parts, llms.TextPart(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:   tc.ID,
					Type: tc.Type,
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, llms.TextPart(""))
			}
			result = append(result, llms.MessageContent{
				Role:  llms.ChatMessageTypeAI,
				Parts: parts,
			})

		case llm.RoleTool:
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: msg.ToolCallID,
						Content:    msg.Content,
					},
				},
			})

		default:
			result = append(result, llms.MessageContent{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
			})
		}
	}

	return result
}

// fromLangchainResult validates and converts a provider response. A
// response with no choices surfaces as an empty-response error instead
// of a blank completion.
func fromLangchainResult(provider string, resp *llms.ContentResponse, model string) (*llm.CompletionResponse, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, llm.NewEmptyResponseError(provider)
	}
	return fromLangchainResponse(resp, model), nil
}

// fromLangchainResponse converts a langchaingo response to a CompletionResponse
func fromLangchainResponse(resp *llms.ContentResponse, model string) *llm.CompletionResponse {
	var content string
	var toolCalls []llm.ToolCall
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Content != "" {
			content = choice.Content
		}

		if len(choice.ToolCalls) > 0 {
			toolCalls = make([]llm.ToolCall, 0, len(choice.ToolCalls))
			for _, tc := range choice.ToolCalls {
				var name, arguments string
				if tc.FunctionCall != nil {
					name = tc.FunctionCall.Name
					arguments = tc.FunctionCall.Arguments
				}

				toolCalls = append(toolCalls, llm.ToolCall{
					ID:        tc.ID,
					Type:      tc.Type,
					Name:      name,
					Arguments: arguments,
				})
			}
		}
	}

	finishReason := llm.FinishReasonStop
	if len(resp.Choices) > 0 {
		if reason := resp.Choices[0].StopReason; reason != "" {
			switch reason {
			case "stop":
				finishReason = llm.FinishReasonStop
			case "length", "max_tokens":
				finishReason = llm.FinishReasonLength
			case "tool_calls", "function_call":
				finishReason = llm.FinishReasonToolCalls
			case "content_filter":
				finishReason = llm.FinishReasonContentFilter
			default:
				finishReason = llm.FinishReasonStop
			}
		}

		if len(toolCalls) > 0 && finishReason == llm.FinishReasonStop {
			finishReason = llm.FinishReasonToolCalls
		}
	}

	return &llm.CompletionResponse{
		ID:    uuid.New().String(),
		Model: model,
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
		},
		FinishReason: finishReason,
		Usage:        extractUsage(resp),
	}
}

// extractUsage pulls token counts out of the response generation info
// when the provider reports them.
func extractUsage(resp *llms.ContentResponse) llm.TokenUsage {
	var usage llm.TokenUsage
	if resp == nil || len(resp.Choices) == 0 {
		return usage
	}

	info := resp.Choices[0].GenerationInfo
	if info == nil {
		return usage
	}

	if v, ok := info["PromptTokens"].(int); ok {
		usage.PromptTokens = v
	}
	if v, ok := info["CompletionTokens"].(int); ok {
		usage.CompletionTokens = v
	}
	if v, ok := info["TotalTokens"].(int); ok {
		usage.TotalTokens = v
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return usage
}

// buildCallOptions converts a request to langchaingo call options
func buildCallOptions(req llm.CompletionRequest) []llms.CallOption {
	callOpts := make([]llms.CallOption, 0)

	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}

	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}

	if len(req.StopSequences) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(req.StopSequences))
	}

	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}

	if req.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	return callOpts
}

// toSchemaTools converts tool definitions to langchaingo Tool format
func toSchemaTools(tools []llm.ToolDef) []llms.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return result
}

// buildCallOptionsWithTools adds tools to call options
func buildCallOptionsWithTools(req llm.CompletionRequest, tools []llm.ToolDef) []llms.CallOption {
	callOpts := buildCallOptions(req)
	if len(tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(toSchemaTools(tools)))
	}
	return callOpts
}
