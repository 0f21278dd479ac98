package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/catalogue-assistant/server/internal/agent/classifier"
	"github.com/catalogue-assistant/server/internal/agent/dispatch"
	"github.com/catalogue-assistant/server/internal/agent/graph/conversations"
	"github.com/catalogue-assistant/server/internal/agent/graph/nodes"
	"github.com/catalogue-assistant/server/internal/agent/graph/observers"
	"github.com/catalogue-assistant/server/internal/agent/guardrails"
	"github.com/catalogue-assistant/server/internal/agent/model"
	agenttrace "github.com/catalogue-assistant/server/internal/agent/trace"
	errx "github.com/catalogue-assistant/server/internal/core/error"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

const (
	defaultTimeout   = 60 * time.Second
	transcriptBudget = 5 * time.Second
	maxRunSteps      = 10
	stateFailed      = "error"
)

// ErrEmptyInput rejects a run without input text.
var ErrEmptyInput = errx.New(nil, http.StatusBadRequest, "input_as_text is required")

// Runner executes one workflow run per call.
type Runner interface {
	Invoke(ctx context.Context, in model.WorkflowInput) (*model.WorkflowResult, error)
}

// Run is the full record of one workflow run.
type Run struct {
	ID           string
	Result       *model.WorkflowResult
	History      []*schema.Message
	TotalCostUSD float64
}

// Config holds the collaborators of the workflow graph. Everything in it is
// built once at startup and only read afterwards.
type Config struct {
	Gate        *guardrails.Gate
	Classifier  *classifier.Classifier
	Dispatcher  *dispatch.Dispatcher
	Tracer      *agenttrace.Tracer
	Transcripts *conversations.TranscriptManager
	// ObserverTracer records component spans; nil uses the global provider.
	ObserverTracer oteltrace.Tracer
	Timeout        time.Duration
}

// WorkflowRunner runs the compiled workflow graph.
type WorkflowRunner struct {
	runnable    compose.Runnable[model.WorkflowInput, *model.WorkflowResult]
	tracer      *agenttrace.Tracer
	transcripts *conversations.TranscriptManager
	callbacks   callbacks.Handler
	timeout     time.Duration
}

type stateKey struct{}

// BuildWorkflow validates cfg and compiles the workflow graph.
func BuildWorkflow(ctx context.Context, cfg Config) (*WorkflowRunner, error) {
	if cfg.Gate == nil {
		return nil, fmt.Errorf("guardrail gate is nil")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is nil")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if cfg.Tracer == nil {
		return nil, fmt.Errorf("tracer is nil")
	}

	registry := cfg.Dispatcher.Registry()
	for _, l := range cfg.Classifier.Labels() {
		if !registry.Labels().Contains(l) {
			return nil, fmt.Errorf("%w: classifier label %q has no registry entry", errx.ErrIncompleteRegistry, l)
		}
	}

	runnable, err := BuildGraph(ctx, cfg.Gate, cfg.Classifier, cfg.Dispatcher)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logx.Debug().Int("labels", len(registry.Labels())).Dur("timeout", timeout).Msg("Workflow graph built successfully")
	return &WorkflowRunner{
		runnable:    runnable,
		tracer:      cfg.Tracer,
		transcripts: cfg.Transcripts,
		callbacks:   observers.NewAllCallbacks(cfg.ObserverTracer),
		timeout:     timeout,
	}, nil
}

// BuildGraph composes the workflow state machine:
//
//	Init -> GuardrailCheck -> {Blocked | Classify}
//	Classify -> {Dispatch | Unmatched}
//
// Every state runs at most once per run.
func BuildGraph(ctx context.Context, gate *guardrails.Gate, c *classifier.Classifier, d *dispatch.Dispatcher) (compose.Runnable[model.WorkflowInput, *model.WorkflowResult], error) {
	g := compose.NewGraph[model.WorkflowInput, *model.WorkflowResult](
		compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
			if s, ok := ctx.Value(stateKey{}).(*model.AppState); ok && s != nil {
				return s
			}
			return &model.AppState{}
		}),
	)

	steps := []func() error{
		func() error {
			return g.AddLambdaNode(nodes.NodeInit, nodes.NewInitNode(),
				compose.WithStatePreHandler(nodes.NewInitPreHandler()))
		},
		func() error {
			return g.AddLambdaNode(nodes.NodeGuardrailCheck, nodes.NewGuardrailNode(gate),
				compose.WithStatePostHandler(nodes.NewGuardrailPostHandler()))
		},
		func() error { return g.AddLambdaNode(nodes.NodeBlocked, nodes.NewBlockedNode()) },
		func() error { return g.AddLambdaNode(nodes.NodeClassify, nodes.NewClassifyNode(c)) },
		func() error { return g.AddLambdaNode(nodes.NodeDispatch, nodes.NewDispatchNode(d)) },
		func() error { return g.AddLambdaNode(nodes.NodeUnmatched, nodes.NewUnmatchedNode()) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("error adding node: %w", err)
		}
	}

	edges := [][2]string{
		{compose.START, nodes.NodeInit},
		{nodes.NodeInit, nodes.NodeGuardrailCheck},
		{nodes.NodeBlocked, compose.END},
		{nodes.NodeDispatch, compose.END},
		{nodes.NodeUnmatched, compose.END},
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	guardBranch := compose.NewGraphBranch(
		nodes.NewGuardrailCondition(),
		map[string]bool{
			nodes.NodeBlocked:  true,
			nodes.NodeClassify: true,
		},
	)
	if err := g.AddBranch(nodes.NodeGuardrailCheck, guardBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding guardrail branch")
		return nil, fmt.Errorf("error adding guardrail branch: %w", err)
	}

	labelBranch := compose.NewGraphBranch(
		nodes.NewLabelCondition(d.Registry()),
		map[string]bool{
			nodes.NodeDispatch:  true,
			nodes.NodeUnmatched: true,
		},
	)
	if err := g.AddBranch(nodes.NodeClassify, labelBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding label branch")
		return nil, fmt.Errorf("error adding label branch: %w", err)
	}

	runnable, err := g.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	return runnable, nil
}

// Invoke runs the workflow and returns its result.
func (r *WorkflowRunner) Invoke(ctx context.Context, in model.WorkflowInput) (*model.WorkflowResult, error) {
	run, err := r.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	return run.Result, nil
}

// Run executes one workflow run inside its own span and deadline. The
// returned Run is never nil and carries the history recorded up to the
// point of failure.
func (r *WorkflowRunner) Run(ctx context.Context, in model.WorkflowInput) (*Run, error) {
	runID := uuid.NewString()
	run := &Run{ID: runID}
	if strings.TrimSpace(in.InputAsText) == "" {
		return run, ErrEmptyInput
	}

	start := time.Now()
	ctx = logx.WithRun(ctx, runID, r.tracer.WorkflowID())
	ctx, span := r.tracer.Start(ctx, runID)

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	state := &model.AppState{RunID: runID, WorkflowID: r.tracer.WorkflowID()}
	runCtx = context.WithValue(runCtx, stateKey{}, state)

	res, err := r.runnable.Invoke(runCtx, in, compose.WithCallbacks(r.callbacks))
	err = runError(runCtx, state, res, err)

	run.History = state.History.Items()
	run.TotalCostUSD = state.TotalCostUSD
	terminal := stateFailed
	if err == nil {
		run.Result = res
		terminal = res.State()
	}
	span.End(res.State(), err)
	observeRun(terminal, err, time.Since(start))

	r.saveTranscript(ctx, run.ID, state.History)

	ev := logx.Ctx(ctx).Info()
	if err != nil {
		ev = logx.Ctx(ctx).Error().Err(err)
	}
	ev.Str("terminal_state", terminal).
		Int("history_items", len(run.History)).
		Float64("total_cost_usd", run.TotalCostUSD).
		Dur("took", time.Since(start)).
		Msg("Workflow finished")
	return run, err
}

// runError maps a graph failure to the error the caller sees: the deadline
// first, then the first node failure, then whatever the graph returned.
func runError(ctx context.Context, state *model.AppState, res *model.WorkflowResult, err error) error {
	if err == nil {
		if res == nil {
			return fmt.Errorf("workflow finished without a result")
		}
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, errx.ErrWorkflowTimeout) {
		return errx.New(fmt.Errorf("%w: %w", errx.ErrWorkflowTimeout, err), http.StatusGatewayTimeout, errx.TimeoutMessage)
	}
	if state.Failure != nil {
		return state.Failure
	}
	return err
}

func (r *WorkflowRunner) saveTranscript(ctx context.Context, runID string, history *model.ConversationHistory) {
	if !r.transcripts.Enabled() {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transcriptBudget)
	defer cancel()

	if err := r.transcripts.SaveRun(saveCtx, runID, history); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("Failed to save run transcript")
	}
}

// LoadTranscript returns the stored history of a finished run.
func (r *WorkflowRunner) LoadTranscript(ctx context.Context, runID string) ([]*schema.Message, error) {
	return r.transcripts.LoadRun(ctx, runID)
}

var _ Runner = (*WorkflowRunner)(nil)
