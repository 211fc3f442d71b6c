package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     *ToolCall
	}{
		{
			name:     "no marker",
			response: "The answer is 42.",
			want:     nil,
		},
		{
			name:     "simple call",
			response: "TOOL_CALL: web_search(golang generics)",
			want:     &ToolCall{Name: "web_search", Args: "golang generics"},
		},
		{
			name:     "marker mid response",
			response: "I need more information.\nTOOL_CALL: knowledge_search(refund policy)\nLet me check.",
			want:     &ToolCall{Name: "knowledge_search", Args: "refund policy"},
		},
		{
			name:     "nested parentheses kept in args",
			response: "TOOL_CALL: database_query(count(*) from users)",
			want:     &ToolCall{Name: "database_query", Args: "count(*) from users"},
		},
		{
			name:     "empty args",
			response: "TOOL_CALL: web_search()",
			want:     &ToolCall{Name: "web_search", Args: ""},
		},
		{
			name:     "missing opening paren",
			response: "TOOL_CALL: web_search",
			want:     nil,
		},
		{
			name:     "missing closing paren",
			response: "TOOL_CALL: web_search(query",
			want:     nil,
		},
		{
			name:     "closing paren on next line ignored",
			response: "TOOL_CALL: web_search(query\n)",
			want:     nil,
		},
		{
			name:     "empty name",
			response: "TOOL_CALL: (args)",
			want:     nil,
		},
		{
			name:     "first marker wins",
			response: "TOOL_CALL: file_read(a.txt)\nTOOL_CALL: web_search(b)",
			want:     &ToolCall{Name: "file_read", Args: "a.txt"},
		},
		{
			name:     "whitespace trimmed",
			response: "TOOL_CALL:   web_search  ( spaced args )",
			want:     &ToolCall{Name: "web_search", Args: "spaced args"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseToolCall(tt.response)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Args, got.Args)
		})
	}
}
