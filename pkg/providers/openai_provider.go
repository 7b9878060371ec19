package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nanobot-ai/agentcore/pkg/config"
)

// OpenAIProvider wraps the hosted OpenAI chat-completions API via the
// official SDK. Its request/response shape is the same OpenAI-compatible
// format HTTPProvider speaks over plain net/http; this wrapper exists so the
// hosted API gets typed request/response handling instead of hand-rolled
// JSON, per the SDK's own conventions.
type OpenAIProvider struct {
	client *openai.Client
	apiKey string
}

func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PROVIDER_OPENAI_API_KEY is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIBase != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBase))
	}

	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, apiKey: cfg.APIKey}, nil
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]interface{}) (*LLMResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: buildOpenAIMessages(messages),
	}

	if len(tools) > 0 {
		params.Tools = buildOpenAITools(tools)
	}
	if maxTokens, ok := options["max_tokens"].(int); ok {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	if temp, ok := options["temperature"].(float64); ok {
		params.Temperature = openai.Float(temp)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API call: %w", err)
	}
	return parseOpenAIResponse(resp), nil
}

func (p *OpenAIProvider) GetDefaultModel() string {
	return "gpt-4o"
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		content, _ := m.ContentString()
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(content))
		case "user":
			out = append(out, openai.UserMessage(content))
		case "assistant":
			out = append(out, openai.AssistantMessage(content))
		case "tool":
			out = append(out, openai.ToolMessage(content, m.ToolCallID))
		}
	}
	return out
}

func buildOpenAITools(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Function.Name,
				Description: openai.String(t.Function.Description),
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return out
}

func parseOpenAIResponse(resp *openai.ChatCompletion) *LLMResponse {
	if len(resp.Choices) == 0 {
		return &LLMResponse{FinishReason: "stop"}
	}

	choice := resp.Choices[0]
	toolCalls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			args = map[string]interface{}{"raw": tc.Function.Arguments}
		}
		toolCalls = append(toolCalls, ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: &FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	usage := &UsageInfo{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	return &LLMResponse{
		Content:      choice.Message.Content,
		ToolCalls:    toolCalls,
		FinishReason: string(choice.FinishReason),
		Usage:        usage,
	}
}
