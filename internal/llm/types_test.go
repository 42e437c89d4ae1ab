package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"valid user", NewUserMessage("hello"), false},
		{"valid system", NewSystemMessage("you are helpful"), false},
		{"empty user", Message{Role: RoleUser}, true},
		{"invalid role", Message{Role: "narrator", Content: "x"}, true},
		{"assistant with tool calls only", Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "search"}}}, false},
		{"empty assistant", Message{Role: RoleAssistant}, true},
		{"tool without call id", Message{Role: RoleTool, Content: "result"}, true},
		{"valid tool result", NewToolResultMessage("call_1", "result"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrInvalidMessage, types.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompletionRequestValidate(t *testing.T) {
	valid := CompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{NewUserMessage("hi")},
	}
	assert.NoError(t, valid.Validate())

	noModel := valid
	noModel.Model = ""
	assert.Error(t, noModel.Validate())

	noMessages := valid
	noMessages.Messages = nil
	assert.Error(t, noMessages.Validate())

	badTemp := valid
	badTemp.Temperature = 1.5
	assert.Error(t, badTemp.Validate())
}

func TestToolCallParseArguments(t *testing.T) {
	tc := ToolCall{ID: "1", Name: "search", Arguments: `{"query": "population of Basel", "limit": 5}`}
	args, err := tc.ParseArguments()
	require.NoError(t, err)
	assert.Equal(t, "population of Basel", args["query"])
	assert.Equal(t, float64(5), args["limit"])

	empty := ToolCall{ID: "2", Name: "noop"}
	args, err = empty.ParseArguments()
	require.NoError(t, err)
	assert.Empty(t, args)

	malformed := ToolCall{ID: "3", Name: "search", Arguments: "{not json"}
	_, err = malformed.ParseArguments()
	assert.Error(t, err)
}

func TestUsageTracker(t *testing.T) {
	tr := NewUsageTracker()
	tr.Record("decide", TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120})
	tr.Record("decide", TokenUsage{PromptTokens: 50, CompletionTokens: 10, TotalTokens: 60})
	tr.Record("solve", TokenUsage{PromptTokens: 200, CompletionTokens: 40, TotalTokens: 240})

	assert.Equal(t, 420, tr.Total().TotalTokens)
	assert.Equal(t, 2, tr.Calls("decide"))
	assert.Equal(t, 1, tr.Calls("solve"))
	assert.Equal(t, 3, tr.TotalCalls())
	assert.Equal(t, 180, tr.ByLabel()["decide"].TotalTokens)
}
