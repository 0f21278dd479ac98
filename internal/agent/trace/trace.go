// Package trace wraps each workflow run in one correlation span.
package trace

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/catalogue-assistant/server/workflow"

// Span attribute keys.
const (
	AttrWorkflowID    = "workflow.id"
	AttrTraceSource   = "trace.source"
	AttrRunID         = "workflow.run_id"
	AttrTerminalState = "workflow.terminal_state"
)

// Tracer opens the per-run workflow span. The workflow id and source are
// process-wide constants fixed at construction.
type Tracer struct {
	tracer     oteltrace.Tracer
	spanName   string
	workflowID string
	source     string
}

// NewTracer returns a tracer naming spans "<name> workflow". A nil provider
// uses the global one.
func NewTracer(provider oteltrace.TracerProvider, name, workflowID, source string) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer:     provider.Tracer(instrumentationName),
		spanName:   name + " workflow",
		workflowID: workflowID,
		source:     source,
	}
}

// WorkflowID returns the fixed workflow id carried by every span.
func (t *Tracer) WorkflowID() string {
	return t.workflowID
}

// Span is one open workflow span.
type Span struct {
	span oteltrace.Span
	once sync.Once
}

// Start opens the workflow span for runID.
func (t *Tracer) Start(ctx context.Context, runID string) (context.Context, *Span) {
	ctx, span := t.tracer.Start(ctx, t.spanName,
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(
			attribute.String(AttrWorkflowID, t.workflowID),
			attribute.String(AttrTraceSource, t.source),
			attribute.String(AttrRunID, runID),
		),
	)
	return ctx, &Span{span: span}
}

// End records the terminal state or the error and closes the span. Calls
// after the first are ignored.
func (s *Span) End(terminalState string, err error) {
	s.once.Do(func() {
		if terminalState != "" {
			s.span.SetAttributes(attribute.String(AttrTerminalState, terminalState))
		}
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		} else {
			s.span.SetStatus(codes.Ok, "")
		}
		s.span.End()
	})
}
