package tools

const (
	execContextChannelKey   = "__context_channel"
	execContextChatIDKey    = "__context_chat_id"
	execContextMessageIDKey = "__context_message_id"
	execContextTraceIDKey   = "__context_trace_id"
)

// withExecutionContext splices routing metadata (channel, chat_id,
// message_id from the triggering InboundMessage, plus an internal trace ID)
// into a tool's argument map without exposing it in the tool's advertised
// JSON schema. Schema validation tolerates the extra keys (additional
// properties are allowed per the registry's validation rules).
func withExecutionContext(args map[string]interface{}, channel, chatID, messageID, traceID string) map[string]interface{} {
	if channel == "" && chatID == "" && messageID == "" && traceID == "" {
		return args
	}

	copyArgs := make(map[string]interface{}, len(args)+4)
	for k, v := range args {
		copyArgs[k] = v
	}
	if channel != "" {
		copyArgs[execContextChannelKey] = channel
	}
	if chatID != "" {
		copyArgs[execContextChatIDKey] = chatID
	}
	if messageID != "" {
		copyArgs[execContextMessageIDKey] = messageID
	}
	if traceID != "" {
		copyArgs[execContextTraceIDKey] = traceID
	}

	return copyArgs
}

func getExecutionContext(args map[string]interface{}) (channel, chatID, messageID string) {
	channel, _ = args[execContextChannelKey].(string)
	chatID, _ = args[execContextChatIDKey].(string)
	messageID, _ = args[execContextMessageIDKey].(string)
	return
}

func getExecutionTraceID(args map[string]interface{}) string {
	traceID, _ := args[execContextTraceIDKey].(string)
	return traceID
}
