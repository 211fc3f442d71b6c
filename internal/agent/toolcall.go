package agent

import "strings"

// toolCallMarker introduces a tool directive in a model response.
const toolCallMarker = "TOOL_CALL:"

// ToolCall is a parsed tool directive
type ToolCall struct {
	Name string
	Args string
}

// ParseToolCall extracts the first tool directive of the form
// `TOOL_CALL: name(args)` from a model response. The directive is read up to
// the next line break; the name is the text before the first '(' and the
// arguments sit between the first '(' and the last ')' on that line.
// Malformed directives are treated as absence of a tool call, never as an
// error.
func ParseToolCall(response string) *ToolCall {
	idx := strings.Index(response, toolCallMarker)
	if idx < 0 {
		return nil
	}

	line := response[idx+len(toolCallMarker):]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}

	open := strings.IndexByte(line, '(')
	if open < 0 {
		return nil
	}
	closing := strings.LastIndexByte(line, ')')
	if closing < open {
		return nil
	}

	name := strings.TrimSpace(line[:open])
	if name == "" {
		return nil
	}

	return &ToolCall{
		Name: name,
		Args: strings.TrimSpace(line[open+1 : closing]),
	}
}
