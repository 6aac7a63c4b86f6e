// Package llmtest provides a scriptable llm.Client test double.
package llmtest

import (
	"context"
	"sync"

	"github.com/alanmeadows/lit-critic/internal/llm"
)

// MockClient is a scriptable llm.Client. Queue results with Enqueue* and
// they are returned in FIFO order; once drained, Default* values are used.
type MockClient struct {
	mu sync.Mutex

	textQueue []*llm.TextResult
	toolQueue []*llm.ToolResult
	errQueue  []error

	DefaultText *llm.TextResult
	DefaultTool *llm.ToolResult

	Calls []Call
}

// Call records one invocation for assertions.
type Call struct {
	Method  string
	Model   string
	System  string
	Tool    string
}

// New builds an empty MockClient.
func New() *MockClient {
	return &MockClient{}
}

// EnqueueText queues a CreateMessage result.
func (m *MockClient) EnqueueText(result *llm.TextResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textQueue = append(m.textQueue, result)
	m.errQueue = append(m.errQueue, err)
}

// EnqueueTool queues a CreateMessageWithTool result.
func (m *MockClient) EnqueueTool(result *llm.ToolResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolQueue = append(m.toolQueue, result)
	m.errQueue = append(m.errQueue, err)
}

func (m *MockClient) CreateMessage(_ context.Context, model string, _ int, _ []llm.Message, system string) (*llm.TextResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Method: "CreateMessage", Model: model, System: system})

	if len(m.textQueue) > 0 {
		result := m.textQueue[0]
		m.textQueue = m.textQueue[1:]
		var err error
		if len(m.errQueue) > 0 {
			err = m.errQueue[0]
			m.errQueue = m.errQueue[1:]
		}
		return result, err
	}
	if m.DefaultText != nil {
		return m.DefaultText, nil
	}
	return &llm.TextResult{Text: ""}, nil
}

func (m *MockClient) CreateMessageWithTool(_ context.Context, model string, _ int, _ []llm.Message, tool llm.ToolSchema, system string) (*llm.ToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Method: "CreateMessageWithTool", Model: model, System: system, Tool: tool.Name})

	if len(m.toolQueue) > 0 {
		result := m.toolQueue[0]
		m.toolQueue = m.toolQueue[1:]
		var err error
		if len(m.errQueue) > 0 {
			err = m.errQueue[0]
			m.errQueue = m.errQueue[1:]
		}
		return result, err
	}
	if m.DefaultTool != nil {
		return m.DefaultTool, nil
	}
	return &llm.ToolResult{ToolInput: map[string]any{}}, nil
}

func (m *MockClient) StreamMessage(ctx context.Context, model string, maxTokens int, messages []llm.Message, system string) (<-chan llm.StreamEvent, error) {
	text, err := m.CreateMessage(ctx, model, maxTokens, messages, system)
	events := make(chan llm.StreamEvent, 2)
	if err != nil {
		events <- llm.StreamEvent{Kind: llm.StreamDone, Err: err}
		close(events)
		return events, nil
	}
	if text.Text != "" {
		events <- llm.StreamEvent{Kind: llm.StreamToken, Text: text.Text}
	}
	events <- llm.StreamEvent{Kind: llm.StreamDone, Result: text}
	close(events)
	return events, nil
}

var _ llm.Client = (*MockClient)(nil)
