// Package llmtest provides a scripted chat model for deterministic tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var ErrScriptExhausted = errors.New("llmtest: script exhausted")

// ScriptedModel replies with a fixed list of messages, one per call, and
// records what it was asked. Models returned by WithTools share the script.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	errs    map[int]error
	calls   [][]*schema.Message
	tools   []*schema.ToolInfo
}

func NewScriptedModel(replies ...*schema.Message) *ScriptedModel {
	return &ScriptedModel{replies: replies, errs: map[int]error{}}
}

// Text is a shorthand for a model that answers each call with one of texts.
func Text(texts ...string) *ScriptedModel {
	replies := make([]*schema.Message, 0, len(texts))
	for _, t := range texts {
		replies = append(replies, schema.AssistantMessage(t, nil))
	}
	return NewScriptedModel(replies...)
}

// ToolCall builds an assistant reply calling name with raw JSON arguments.
func ToolCall(name, arguments string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_" + name,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: arguments},
	}})
}

// FailAt makes the call with index n (0-based) return err.
func (m *ScriptedModel) FailAt(n int, err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[n] = err
	return m
}

func (m *ScriptedModel) next(input []*schema.Message) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.calls)
	m.calls = append(m.calls, input)
	if err, ok := m.errs[n]; ok {
		return nil, err
	}
	idx := n - countBefore(m.errs, n)
	if idx >= len(m.replies) {
		return nil, ErrScriptExhausted
	}
	return m.replies[idx], nil
}

func countBefore(errs map[int]error, n int) int {
	c := 0
	for i := range errs {
		if i < n {
			c++
		}
	}
	return c
}

func (m *ScriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return m.next(input)
}

// Stream splits the scripted reply into word-sized chunks.
func (m *ScriptedModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.next(input)
	if err != nil {
		return nil, err
	}
	var chunks []*schema.Message
	for _, w := range strings.SplitAfter(msg.Content, " ") {
		if w != "" {
			chunks = append(chunks, schema.AssistantMessage(w, nil))
		}
	}
	if len(msg.ToolCalls) > 0 {
		chunks = append(chunks, schema.AssistantMessage("", msg.ToolCalls))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *ScriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return m, nil
}

// Calls returns the inputs of every call so far.
func (m *ScriptedModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// Tools returns the tools last bound with WithTools.
func (m *ScriptedModel) Tools() []*schema.ToolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tools
}
