package providers

// AssistantMessageFromResponse converts an LLMResponse into the assistant
// Message appended to the running conversation: content is always included
// (some providers reject omitting the key even when empty), tool_calls only
// when non-empty, and reasoning_content only when the provider supplied one.
func AssistantMessageFromResponse(resp *LLMResponse) Message {
	msg := Message{
		Role:    "assistant",
		Content: resp.Content,
	}
	if len(resp.ToolCalls) > 0 {
		msg.ToolCalls = resp.ToolCalls
	}
	if resp.ReasoningContent != "" {
		msg.ReasoningContent = resp.ReasoningContent
	}
	return msg
}
