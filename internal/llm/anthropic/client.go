// Package anthropic adapts the Anthropic Messages API to the internal/llm
// Client contract: system prompt as a side channel, tool schema passed as
// {name, description, input_schema}, truncation signalled by
// stop_reason == "max_tokens".
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/alanmeadows/lit-critic/internal/llm"
)

// Client wraps the Anthropic SDK client behind the llm.Client contract.
type Client struct {
	sdk sdk.Client
}

// New builds a Client authenticated with apiKey.
func New(apiKey string) *Client {
	return &Client{sdk: sdk.NewClient(option.WithAPIKey(apiKey))}
}

var _ llm.Client = (*Client)(nil)

func toAnthropicMessages(messages []llm.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out = append(out, sdk.NewAssistantMessage(block))
		default:
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	return out
}

func (c *Client) CreateMessage(ctx context.Context, model string, maxTokens int, messages []llm.Message, system string) (*llm.TextResult, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toAnthropicMessages(messages),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &llm.TextResult{
		Text:      text,
		Truncated: resp.StopReason == "max_tokens",
	}, nil
}

func (c *Client) CreateMessageWithTool(ctx context.Context, model string, maxTokens int, messages []llm.Message, tool llm.ToolSchema, system string) (*llm.ToolResult, error) {
	schema, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal tool schema: %w", err)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toAnthropicMessages(messages),
		Tools: []sdk.ToolUnionParam{
			{
				OfTool: &sdk.ToolParam{
					Name:        tool.Name,
					Description: sdk.String(tool.Description),
					InputSchema: sdk.ToolInputSchemaParam{ExtraFields: map[string]any{"raw": json.RawMessage(schema)}},
				},
			},
		},
		ToolChoice: sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: tool.Name},
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message with tool: %w", err)
	}

	result := &llm.ToolResult{Truncated: resp.StopReason == "max_tokens"}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.RawText += block.Text
		case "tool_use":
			if block.Name == tool.Name {
				var input map[string]any
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return nil, fmt.Errorf("anthropic: decode tool input: %w", err)
				}
				result.ToolInput = input
			}
		}
	}
	if result.ToolInput == nil {
		return nil, fmt.Errorf("anthropic: model did not call tool %q", tool.Name)
	}
	return result, nil
}

func (c *Client) StreamMessage(ctx context.Context, model string, maxTokens int, messages []llm.Message, system string) (<-chan llm.StreamEvent, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toAnthropicMessages(messages),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	stream := c.sdk.Messages.NewStreaming(ctx, params)

	events := make(chan llm.StreamEvent)
	go func() {
		defer close(events)

		var full sdk.Message
		var text string
		for stream.Next() {
			event := stream.Current()
			if err := full.Accumulate(event); err != nil {
				events <- llm.StreamEvent{Kind: llm.StreamDone, Err: err}
				return
			}
			if delta, ok := event.AsAny().(sdk.ContentBlockDeltaEvent); ok {
				if delta.Delta.Text != "" {
					text += delta.Delta.Text
					events <- llm.StreamEvent{Kind: llm.StreamToken, Text: delta.Delta.Text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			events <- llm.StreamEvent{Kind: llm.StreamDone, Err: err}
			return
		}

		events <- llm.StreamEvent{
			Kind: llm.StreamDone,
			Result: &llm.TextResult{
				Text:      text,
				Truncated: full.StopReason == "max_tokens",
			},
		}
	}()

	return events, nil
}
