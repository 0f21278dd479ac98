// Package llmtest provides scripted chat models for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

// ErrScriptExhausted is returned when a ScriptedModel has no replies left.
var ErrScriptExhausted = errors.New("scripted model has no more replies")

// Reply is one scripted Generate outcome.
type Reply struct {
	Message *schema.Message
	Err     error
}

// ScriptedModel replays replies in order and records every input it receives.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []Reply
	inputs  [][]*schema.Message
}

// NewScriptedModel returns a model that answers with replies in order.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

// Text is a shorthand for an assistant reply with content.
func Text(content string) Reply {
	return Reply{Message: schema.AssistantMessage(content, nil)}
}

// ToolCall is a shorthand for an assistant reply requesting one tool call.
func ToolCall(id, name, args string) Reply {
	return Reply{Message: schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})}
}

// Generate implements model.BaseChatModel.
func (m *ScriptedModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]*schema.Message, len(input))
	copy(snapshot, input)
	m.inputs = append(m.inputs, snapshot)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.Message, r.Err
}

// Stream implements model.BaseChatModel by wrapping Generate.
func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls returns how many times Generate was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// Inputs returns the recorded inputs of every Generate call.
func (m *ScriptedModel) Inputs() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.inputs))
	copy(out, m.inputs)
	return out
}

// Provider maps model names to scripted models. Requests for unknown names
// fail, which lets tests assert a capability was never reached.
type Provider struct {
	mu     sync.Mutex
	models map[string]*ScriptedModel
	tools  map[string][]*schema.ToolInfo
	err    error
}

// NewProvider returns an empty fake provider.
func NewProvider() *Provider {
	return &Provider{
		models: map[string]*ScriptedModel{},
		tools:  map[string][]*schema.ToolInfo{},
	}
}

// Set registers the scripted model answering for name.
func (p *Provider) Set(name string, m *ScriptedModel) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[name] = m
	return p
}

// FailWith makes every ChatModel call return err.
func (p *Provider) FailWith(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// BoundTools returns the tools bound the last time name was requested.
func (p *Provider) BoundTools(name string) []*schema.ToolInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tools[name]
}

// ChatModel implements llm.Provider.
func (p *Provider) ChatModel(_ context.Context, params model.ModelParams, tools []*schema.ToolInfo) (einomodel.BaseChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	m, ok := p.models[params.Model]
	if !ok {
		return nil, errors.New("no scripted model for " + params.Model)
	}
	p.tools[params.Model] = tools
	return m, nil
}
