package dispatch

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/completion"
	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// Metadata keys passed through on a responder output.
const (
	MetaResponder    = "responder"
	MetaCostTotalUSD = "usage_cost_total_usd"
)

// Dispatcher invokes the responder registered for a label.
type Dispatcher struct {
	registry *Registry
	runner   completion.Runner
}

// NewDispatcher returns a dispatcher over registry.
func NewDispatcher(registry *Registry, runner completion.Runner) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("responder registry is nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("responder runner is nil")
	}
	return &Dispatcher{registry: registry, runner: runner}, nil
}

// Registry returns the table the dispatcher routes with.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs the responder for label against history. Labels routed to
// the fallback are rejected with ErrUnknownLabel; callers check Has first.
// The returned completion holds the responder's items, also on failure.
func (d *Dispatcher) Dispatch(ctx context.Context, label model.Label, history []*schema.Message) (*model.ResponderOutput, *completion.Completion, error) {
	desc, ok := d.registry.Lookup(label)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no responder for %q", errx.ErrUnknownLabel, label)
	}

	logx.Ctx(ctx).Debug().Str("label", string(label)).Str("responder", desc.Name).Msg("Dispatching to responder")
	comp, err := d.runner.Run(ctx, desc, history)
	if err != nil {
		return nil, comp, fmt.Errorf("run responder %s: %w", desc.Name, err)
	}
	if comp == nil || comp.FinalOutput == nil {
		return nil, comp, fmt.Errorf("%w: %s", errx.ErrResponderOutputMissing, desc.Name)
	}

	return &model.ResponderOutput{
		OutputText:     *comp.FinalOutput,
		Classification: label,
		Metadata: map[string]any{
			MetaResponder:    desc.Name,
			MetaCostTotalUSD: comp.TotalCostUSD,
		},
	}, comp, nil
}
