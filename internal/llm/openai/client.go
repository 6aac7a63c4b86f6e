// Package openai adapts the OpenAI Chat Completions API to the internal/llm
// Client contract: system prompt prepended as a system-role message, tool
// schema wrapped as {type: function, function: {...}}, truncation signalled
// by finish_reason == "length".
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/alanmeadows/lit-critic/internal/llm"
)

// Client wraps the OpenAI SDK client behind the llm.Client contract.
type Client struct {
	sdk sdk.Client
}

// New builds a Client authenticated with apiKey.
func New(apiKey string) *Client {
	return &Client{sdk: sdk.NewClient(option.WithAPIKey(apiKey))}
}

var _ llm.Client = (*Client)(nil)

func toChatMessages(messages []llm.Message, system string) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, sdk.SystemMessage(system))
	}
	for _, m := range messages {
		if m.Role == "assistant" {
			out = append(out, sdk.AssistantMessage(m.Content))
		} else {
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func (c *Client) CreateMessage(ctx context.Context, model string, maxTokens int, messages []llm.Message, system string) (*llm.TextResult, error) {
	params := sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModel(model),
		MaxCompletionTokens: sdk.Int(int64(maxTokens)),
		Messages:            toChatMessages(messages, system),
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: create message: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}
	choice := resp.Choices[0]

	return &llm.TextResult{
		Text:      choice.Message.Content,
		Truncated: choice.FinishReason == "length",
	}, nil
}

func (c *Client) CreateMessageWithTool(ctx context.Context, model string, maxTokens int, messages []llm.Message, tool llm.ToolSchema, system string) (*llm.ToolResult, error) {
	params := sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModel(model),
		MaxCompletionTokens: sdk.Int(int64(maxTokens)),
		Messages:            toChatMessages(messages, system),
		Tools: []sdk.ChatCompletionToolParam{
			{
				Function: shared.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: sdk.String(tool.Description),
					Parameters:  shared.FunctionParameters(tool.InputSchema),
				},
			},
		},
		ToolChoice: sdk.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &sdk.ChatCompletionNamedToolChoiceParam{
				Function: sdk.ChatCompletionNamedToolChoiceFunctionParam{Name: tool.Name},
			},
		},
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: create message with tool: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}
	choice := resp.Choices[0]

	result := &llm.ToolResult{
		Truncated: choice.FinishReason == "length",
		RawText:   choice.Message.Content,
	}
	for _, call := range choice.Message.ToolCalls {
		if call.Function.Name != tool.Name {
			continue
		}
		var input map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
			return nil, fmt.Errorf("openai: decode tool arguments: %w", err)
		}
		result.ToolInput = input
	}
	if result.ToolInput == nil {
		return nil, fmt.Errorf("openai: model did not call tool %q", tool.Name)
	}
	return result, nil
}

func (c *Client) StreamMessage(ctx context.Context, model string, maxTokens int, messages []llm.Message, system string) (<-chan llm.StreamEvent, error) {
	params := sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModel(model),
		MaxCompletionTokens: sdk.Int(int64(maxTokens)),
		Messages:            toChatMessages(messages, system),
	}

	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)

	events := make(chan llm.StreamEvent)
	go func() {
		defer close(events)

		var text string
		truncated := false
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				text += choice.Delta.Content
				events <- llm.StreamEvent{Kind: llm.StreamToken, Text: choice.Delta.Content}
			}
			if choice.FinishReason == "length" {
				truncated = true
			}
		}
		if err := stream.Err(); err != nil {
			events <- llm.StreamEvent{Kind: llm.StreamDone, Err: err}
			return
		}

		events <- llm.StreamEvent{
			Kind:   llm.StreamDone,
			Result: &llm.TextResult{Text: text, Truncated: truncated},
		}
	}()

	return events, nil
}
