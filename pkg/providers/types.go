package providers

import (
	"context"
	"encoding/json"
	"fmt"
)

// ContentPart is one element of a multimodal user message: either a text
// fragment or a base64 data-URI image reference.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps a data-URI image reference, the only form this engine emits.
type ImageURL struct {
	URL string `json:"url"`
}

// FunctionCall is the raw function-call payload some providers return before
// arguments have been parsed into a map.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a single tool invocation requested by the model. Arguments is
// the parsed form; Function carries the raw provider payload when Arguments
// has not yet been derived from it.
type ToolCall struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type,omitempty"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Function  *FunctionCall          `json:"function,omitempty"`
}

// ResolvedArguments returns Arguments, defensively parsing Function.Arguments
// (a JSON-encoded string some providers use instead of a populated map) when
// Arguments itself is empty.
func (tc ToolCall) ResolvedArguments() map[string]interface{} {
	if len(tc.Arguments) > 0 {
		return tc.Arguments
	}
	if tc.Function == nil || tc.Function.Arguments == "" {
		return map[string]interface{}{}
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &parsed); err != nil {
		return map[string]interface{}{}
	}
	return parsed
}

// ResolvedName returns Name, falling back to Function.Name.
func (tc ToolCall) ResolvedName() string {
	if tc.Name != "" {
		return tc.Name
	}
	if tc.Function != nil {
		return tc.Function.Name
	}
	return ""
}

// Message is one entry in the chat history sent to and received from an
// LLM provider. Content is either a string (plain text) or a []ContentPart
// (multimodal — image parts followed by a trailing text part).
type Message struct {
	Role             string      `json:"role"`
	Content          interface{} `json:"content"`
	ToolCalls        []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID       string      `json:"tool_call_id,omitempty"`
	Name             string      `json:"name,omitempty"`
	ReasoningContent string      `json:"reasoning_content,omitempty"`
	ToolsUsed        []string    `json:"tools_used,omitempty"`
	Timestamp        string      `json:"timestamp,omitempty"`
}

// ContentString returns Content as a string when it is one, and the
// concatenation of any text parts otherwise (images are ignored). The
// second return value is false only when Content is nil or an unrecognized
// type.
func (m Message) ContentString() (string, bool) {
	switch v := m.Content.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []ContentPart:
		s := ""
		for _, p := range v {
			if p.Type == "text" {
				s += p.Text
			}
		}
		return s, true
	default:
		return "", false
	}
}

// ContentLen reports the character length used for budget accounting.
func (m Message) ContentLen() int {
	s, _ := m.ContentString()
	return len(s)
}

// UnmarshalJSON restores Content to either a string or a []ContentPart
// depending on the wire shape, since Go cannot infer this from an
// interface{} field on its own.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		Content json.RawMessage `json:"content"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Content) == 0 || string(aux.Content) == "null" {
		m.Content = nil
		return nil
	}
	var asString string
	if err := json.Unmarshal(aux.Content, &asString); err == nil {
		m.Content = asString
		return nil
	}
	var asParts []ContentPart
	if err := json.Unmarshal(aux.Content, &asParts); err == nil {
		m.Content = asParts
		return nil
	}
	return fmt.Errorf("message content: unsupported shape %s", string(aux.Content))
}

// ToolFunctionDefinition describes one callable tool in OpenAI-function
// schema form.
type ToolFunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolDefinition is the wire shape advertised to a provider for each
// registered tool.
type ToolDefinition struct {
	Type     string                  `json:"type"`
	Function ToolFunctionDefinition  `json:"function"`
}

// UsageInfo reports token accounting for a single Chat call, when the
// provider supplies it.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMResponse is the normalized result of a Chat call.
type LLMResponse struct {
	Content          string
	ToolCalls        []ToolCall
	FinishReason     string
	ReasoningContent string
	Usage            *UsageInfo
}

// HasToolCalls reports whether the model asked to invoke one or more tools.
func (r *LLMResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// LLMProvider is the contract every concrete provider (Claude, HTTP/OpenAI
// compatible, fallback wrapper) must satisfy.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]interface{}) (*LLMResponse, error)
	GetDefaultModel() string
}
