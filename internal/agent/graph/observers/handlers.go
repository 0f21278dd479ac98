package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/catalogue-assistant/server/observers"

// NewAllCallbacks aggregates the model, tool and prompt observers into one
// callbacks.Handler. Each observed component call is logged and recorded as
// a child span of the span found in ctx. A nil tracer uses the global
// provider.
func NewAllCallbacks(tracer trace.Tracer) einocb.Handler {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler(tracer)).
		ChatModel(newModelHandler(tracer)).
		Prompt(newPromptHandler(tracer)).
		Handler()
}

func startSpan(ctx context.Context, tracer trace.Tracer, kind string, info *einocb.RunInfo) context.Context {
	name := kind
	if info != nil && info.Name != "" {
		name = kind + " " + info.Name
	}
	ctx, span := tracer.Start(ctx, name)
	if info != nil {
		span.SetAttributes(
			attribute.String("eino.component", string(info.Component)),
			attribute.String("eino.type", info.Type),
		)
	}
	return ctx
}

func endSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func nameOf(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}
