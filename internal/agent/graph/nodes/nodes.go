package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/classifier"
	"github.com/catalogue-assistant/server/internal/agent/completion"
	"github.com/catalogue-assistant/server/internal/agent/dispatch"
	"github.com/catalogue-assistant/server/internal/agent/guardrails"
	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// Graph node keys, one per workflow state.
const (
	NodeInit           = "Init"
	NodeGuardrailCheck = "GuardrailCheck"
	NodeBlocked        = "Blocked"
	NodeClassify       = "Classify"
	NodeDispatch       = "Dispatch"
	NodeUnmatched      = "Unmatched"
)

// NewInitPreHandler seeds the run state before the Init node runs.
func NewInitPreHandler() func(context.Context, model.WorkflowInput, *model.AppState) (model.WorkflowInput, error) {
	return func(ctx context.Context, in model.WorkflowInput, s *model.AppState) (model.WorkflowInput, error) {
		s.History = model.NewConversationHistory(in.InputAsText)
		s.Guardrails = nil
		s.SafeText = ""
		s.Classification = nil
		s.Result = nil
		s.Failure = nil
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInitNode passes the raw input text on to the guardrail check.
func NewInitNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.WorkflowInput) (string, error) {
		logx.Ctx(ctx).Debug().Str("node", NodeInit).Int("input_length", len(in.InputAsText)).Msg("Workflow started")
		return in.InputAsText, nil
	})
}

// NewGuardrailNode evaluates the raw input against the gate.
func NewGuardrailNode(gate *guardrails.Gate) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, text string) (*guardrails.Verdict, error) {
		verdict, err := gate.Evaluate(ctx, text)
		if err != nil {
			return nil, fail(ctx, NodeGuardrailCheck, err)
		}
		return verdict, nil
	})
}

// NewGuardrailPostHandler records the guardrail results on the run state.
func NewGuardrailPostHandler() func(context.Context, *guardrails.Verdict, *model.AppState) (*guardrails.Verdict, error) {
	return func(ctx context.Context, v *guardrails.Verdict, s *model.AppState) (*guardrails.Verdict, error) {
		if v == nil {
			return v, nil
		}
		s.Guardrails = v.Results
		s.SafeText = v.SafeText

		ev := logx.Ctx(ctx).Debug().Str("node", NodeGuardrailCheck).Int("checks", len(v.Results))
		if v.Blocked {
			ev = logx.Ctx(ctx).Info().Str("node", NodeGuardrailCheck).Int("checks", len(v.Results))
		}
		ev.Bool("blocked", v.Blocked).Msg("Guardrails evaluated")
		return v, nil
	}
}

// NewGuardrailCondition routes to Blocked on any tripwire, else to Classify.
func NewGuardrailCondition() func(context.Context, *guardrails.Verdict) (string, error) {
	return func(ctx context.Context, v *guardrails.Verdict) (string, error) {
		if v != nil && v.Blocked {
			return NodeBlocked, nil
		}
		return NodeClassify, nil
	}
}

// NewBlockedNode turns the guardrail results into the failure report.
func NewBlockedNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, v *guardrails.Verdict) (*model.WorkflowResult, error) {
		report := guardrails.BuildFailureReport(v.Results)
		return finish(ctx, model.BlockedResult(report)), nil
	})
}

// NewClassifyNode labels the current history. The classifier's items are
// appended to the history whether or not a label could be parsed.
func NewClassifyNode(c *classifier.Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *guardrails.Verdict) (*model.ClassificationResult, error) {
		res, comp, err := c.Classify(ctx, history(ctx))
		record(ctx, comp)
		if err != nil {
			return nil, fail(ctx, NodeClassify, err)
		}

		_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			s.Classification = res
			return nil
		})
		logx.Ctx(ctx).Info().Str("node", NodeClassify).Str("label", string(res.Label())).Msg("Input classified")
		return res, nil
	})
}

// NewLabelCondition routes labels with a registered responder to Dispatch
// and everything else to Unmatched.
func NewLabelCondition(registry *dispatch.Registry) func(context.Context, *model.ClassificationResult) (string, error) {
	return func(ctx context.Context, res *model.ClassificationResult) (string, error) {
		if registry.Has(res.Label()) {
			return NodeDispatch, nil
		}
		logx.Ctx(ctx).Debug().Str("label", string(res.Label())).Msg("No responder registered - returning classification")
		return NodeUnmatched, nil
	}
}

// NewDispatchNode runs the responder for the classified label and appends
// every item it produced to the history.
func NewDispatchNode(d *dispatch.Dispatcher) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, res *model.ClassificationResult) (*model.WorkflowResult, error) {
		out, comp, err := d.Dispatch(ctx, res.Label(), history(ctx))
		record(ctx, comp)
		if err != nil {
			return nil, fail(ctx, NodeDispatch, err)
		}

		var total float64
		_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			total = s.TotalCostUSD
			return nil
		})
		out.Metadata[dispatch.MetaCostTotalUSD] = total
		return finish(ctx, model.RespondedResult(*out)), nil
	})
}

// NewUnmatchedNode returns the classification unchanged.
func NewUnmatchedNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, res *model.ClassificationResult) (*model.WorkflowResult, error) {
		if res == nil {
			return nil, fail(ctx, NodeUnmatched, errx.ErrClassifierOutputMissing)
		}
		return finish(ctx, model.UnmatchedResult(*res)), nil
	})
}

// history returns a snapshot of the run history.
func history(ctx context.Context) []*schema.Message {
	var items []*schema.Message
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		items = s.History.Items()
		return nil
	})
	return items
}

// record appends the items of a completion and accumulates its cost.
func record(ctx context.Context, comp *completion.Completion) {
	if comp == nil {
		return
	}
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		s.History.Append(comp.NewItems...)
		s.TotalCostUSD += comp.TotalCostUSD
		return nil
	})
}

func finish(ctx context.Context, res *model.WorkflowResult) *model.WorkflowResult {
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		s.Result = res
		return nil
	})
	logx.Ctx(ctx).Debug().Str("state", res.State()).Msg("Workflow reached terminal state")
	return res
}

// fail keeps the first fatal error on the run state so the caller can
// recover it from underneath the graph's own error wrapping.
func fail(ctx context.Context, node string, err error) error {
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		if s.Failure == nil {
			s.Failure = err
		}
		return nil
	})
	logx.Ctx(ctx).Error().Err(err).Str("node", node).Msg("Workflow node failed")
	return fmt.Errorf("%s: %w", strings.ToLower(node), err)
}
