package providers

// ToolResultMessage builds a role:"tool" chat message carrying a tool's
// stringified result.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: toolCallID,
	}
}
