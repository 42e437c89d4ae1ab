package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

func TestToSchemaMessagesRoles(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a graph builder."},
		{Role: llm.RoleUser, Content: "What is the population of Basel?"},
	}

	converted := toSchemaMessages(messages)
	require.Len(t, converted, 2)

	assert.Equal(t, llms.ChatMessageTypeSystem, converted[0].Role)
	assert.Equal(t, []llms.ContentPart{llms.TextPart("You are a graph builder.")}, converted[0].Parts)

	assert.Equal(t, llms.ChatMessageTypeHuman, converted[1].Role)
	assert.Equal(t, []llms.ContentPart{llms.TextPart("What is the population of Basel?")}, converted[1].Parts)
}

func TestToSchemaMessagesKeepsAssistantToolCalls(t *testing.T) {
	messages := []llm.Message{
		{
			Role:    llm.RoleAssistant,
			Content: "Let me check.",
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Type: "function", Name: "calculator", Arguments: `{"expression": "2+2"}`},
			},
		},
	}

	converted := toSchemaMessages(messages)
	require.Len(t, converted, 1)
	assert.Equal(t, llms.ChatMessageTypeAI, converted[0].Role)
	require.Len(t, converted[0].Parts, 2)

	assert.Equal(t, llms.TextPart("Let me check."), converted[0].Parts[0])

	call, ok := converted[0].Parts[1].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "function", call.Type)
	require.NotNil(t, call.FunctionCall)
	assert.Equal(t, "calculator", call.FunctionCall.Name)
	assert.Equal(t, `{"expression": "2+2"}`, call.FunctionCall.Arguments)
}

func TestToSchemaMessagesKeepsToolResponses(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleTool, Content: "4", ToolCallID: "call_1"},
	}

	converted := toSchemaMessages(messages)
	require.Len(t, converted, 1)
	assert.Equal(t, llms.ChatMessageTypeTool, converted[0].Role)
	require.Len(t, converted[0].Parts, 1)

	resp, ok := converted[0].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, "4", resp.Content)
}

func TestToSchemaMessagesEmptyAssistant(t *testing.T) {
	converted := toSchemaMessages([]llm.Message{{Role: llm.RoleAssistant}})
	require.Len(t, converted, 1)
	// Providers reject messages with no parts at all.
	assert.Equal(t, []llms.ContentPart{llms.TextPart("")}, converted[0].Parts)
}

func TestFromLangchainResultEmptyResponse(t *testing.T) {
	_, err := fromLangchainResult("openai", nil, "gpt-4o")
	require.Error(t, err)
	assert.Equal(t, llm.ErrEmptyResponse, types.CodeOf(err))

	_, err = fromLangchainResult("openai", &llms.ContentResponse{}, "gpt-4o")
	require.Error(t, err)
	assert.Equal(t, llm.ErrEmptyResponse, types.CodeOf(err))
}

func TestFromLangchainResultToolCalls(t *testing.T) {
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				StopReason: "tool_calls",
				ToolCalls: []llms.ToolCall{
					{ID: "call_9", Type: "function", FunctionCall: &llms.FunctionCall{
						Name:      "calculator",
						Arguments: `{"expression": "3*3"}`,
					}},
				},
			},
		},
	}

	out, err := fromLangchainResult("ollama", resp, "llama3")
	require.NoError(t, err)
	assert.Equal(t, llm.FinishReasonToolCalls, out.FinishReason)
	require.Len(t, out.Message.ToolCalls, 1)
	assert.Equal(t, "call_9", out.Message.ToolCalls[0].ID)
	assert.Equal(t, "calculator", out.Message.ToolCalls[0].Name)
}
