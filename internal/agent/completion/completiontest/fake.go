// Package completiontest provides a scripted completion.Runner for tests.
package completiontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/completion"
	"github.com/catalogue-assistant/server/internal/agent/model"
)

// Result is the scripted outcome of one capability.
type Result struct {
	Completion *completion.Completion
	Err        error
}

// Runner answers Run calls by capability name and records every call.
type Runner struct {
	mu        sync.Mutex
	results   map[string]Result
	calls     map[string]int
	histories map[string][][]*schema.Message
	descs     map[string]model.ResponderDescriptor
}

// NewRunner returns a runner with no scripted capabilities.
func NewRunner() *Runner {
	return &Runner{
		results:   map[string]Result{},
		calls:     map[string]int{},
		histories: map[string][][]*schema.Message{},
		descs:     map[string]model.ResponderDescriptor{},
	}
}

// Answer scripts capability name to finish with text after producing items.
// The final assistant message is appended to items automatically.
func (r *Runner) Answer(name, text string, items ...*schema.Message) *Runner {
	final := schema.AssistantMessage(text, nil)
	all := append(append([]*schema.Message{}, items...), final)
	return r.Script(name, Result{Completion: &completion.Completion{FinalOutput: &text, NewItems: all}})
}

// NoOutput scripts capability name to produce items but no final output.
func (r *Runner) NoOutput(name string, items ...*schema.Message) *Runner {
	return r.Script(name, Result{Completion: &completion.Completion{NewItems: items}})
}

// Script sets the raw outcome of capability name.
func (r *Runner) Script(name string, res Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[name] = res
	return r
}

// Run implements completion.Runner.
func (r *Runner) Run(ctx context.Context, desc model.ResponderDescriptor, history []*schema.Message) (*completion.Completion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]*schema.Message, len(history))
	copy(snapshot, history)
	r.calls[desc.Name]++
	r.histories[desc.Name] = append(r.histories[desc.Name], snapshot)
	r.descs[desc.Name] = desc

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, ok := r.results[desc.Name]
	if !ok {
		return nil, fmt.Errorf("no scripted result for capability %q", desc.Name)
	}
	return res.Completion, res.Err
}

// Calls returns how many times capability name ran.
func (r *Runner) Calls(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

// TotalCalls returns the number of Run calls across all capabilities.
func (r *Runner) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

// Histories returns the history each call of capability name received.
func (r *Runner) Histories(name string) [][]*schema.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]*schema.Message(nil), r.histories[name]...)
}

// Descriptor returns the descriptor the last call of name received.
func (r *Runner) Descriptor(name string) model.ResponderDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.descs[name]
}

var _ completion.Runner = (*Runner)(nil)
