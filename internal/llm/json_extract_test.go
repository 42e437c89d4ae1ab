package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "json code block",
			response: "Here is the result:\n```json\n{\"tool\": \"search\"}\n```",
			want:     `{"tool": "search"}`,
		},
		{
			name:     "untagged code block",
			response: "```\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "raw object with surrounding prose",
			response: `The answer is {"mode": "RETRIEVE", "content": "count hops"} as requested.`,
			want:     `{"mode": "RETRIEVE", "content": "count hops"}`,
		},
		{
			name:     "raw array",
			response: `[1, 2, 3]`,
			want:     `[1, 2, 3]`,
		},
		{
			name:     "nested braces inside strings",
			response: `{"query": "MATCH (n {name: \"a\"}) RETURN n"}`,
			want:     `{"query": "MATCH (n {name: \"a\"}) RETURN n"}`,
		},
		{
			name:     "python code block skipped",
			response: "```python\nprint('hi')\n```\n{\"ok\": true}",
			want:     `{"ok": true}`,
		},
		{
			name:     "no json",
			response: "I cannot answer that.",
			wantErr:  true,
		},
		{
			name:     "unbalanced braces",
			response: `{"a": 1`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONAs(t *testing.T) {
	type decision struct {
		Mode    string `json:"mode"`
		Content string `json:"content"`
	}

	got, err := ExtractJSONAs[decision]("```json\n{\"mode\": \"INSERT\", \"content\": \"missing dates\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "INSERT", got.Mode)
	assert.Equal(t, "missing dates", got.Content)

	_, err = ExtractJSONAs[decision]("no structure here")
	assert.Error(t, err)
}
