// Package testutil provides a scripted chat model for offline tests.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type HandlerFunc func(ctx context.Context, in []*schema.Message, opts *model.Options) (*schema.Message, error)

type Call struct {
	Messages    []*schema.Message
	Temperature *float32
	ToolChoice  *schema.ToolChoice
}

var _ model.ToolCallingChatModel = (*ChatModel)(nil)

// ChatModel answers every request with its handler and records the calls.
type ChatModel struct {
	mu      sync.Mutex
	handler HandlerFunc
	calls   []Call
}

func NewChatModel(handler HandlerFunc) *ChatModel {
	return &ChatModel{handler: handler}
}

func (m *ChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(&model.Options{}, opts...)
	m.mu.Lock()
	m.calls = append(m.calls, Call{Messages: in, Temperature: o.Temperature, ToolChoice: o.ToolChoice})
	m.mu.Unlock()
	return m.handler(ctx, in, o)
}

func (m *ChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *ChatModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *ChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Text always answers with content.
func Text(content string) HandlerFunc {
	return func(ctx context.Context, in []*schema.Message, opts *model.Options) (*schema.Message, error) {
		return schema.AssistantMessage(content, nil), nil
	}
}

// Fail always answers with err.
func Fail(err error) HandlerFunc {
	return func(ctx context.Context, in []*schema.Message, opts *model.Options) (*schema.Message, error) {
		return nil, err
	}
}

// ToolCall answers with a single tool call carrying arguments.
func ToolCall(name, arguments string) HandlerFunc {
	return func(ctx context.Context, in []*schema.Message, opts *model.Options) (*schema.Message, error) {
		return schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_1",
			Function: schema.FunctionCall{Name: name, Arguments: arguments},
		}}), nil
	}
}

// Sequence answers with contents in order and repeats the last one.
func Sequence(contents ...string) HandlerFunc {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, in []*schema.Message, opts *model.Options) (*schema.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(contents) == 0 {
			return schema.AssistantMessage("", nil), nil
		}
		c := contents[min(i, len(contents)-1)]
		i++
		return schema.AssistantMessage(c, nil), nil
	}
}

// Switch routes requests whose system prompt contains marker to matched,
// everything else to other.
func Switch(marker string, matched, other HandlerFunc) HandlerFunc {
	return func(ctx context.Context, in []*schema.Message, opts *model.Options) (*schema.Message, error) {
		for _, msg := range in {
			if msg != nil && msg.Role == schema.System && strings.Contains(msg.Content, marker) {
				return matched(ctx, in, opts)
			}
		}
		return other(ctx, in, opts)
	}
}
