package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// newModelHandler logs the message context and the reply around model calls.
func newModelHandler(tracer trace.Tracer) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = startSpan(ctx, tracer, "model", info)
			if input == nil {
				return ctx
			}
			ev := logx.Ctx(ctx).Debug().
				Str("component", "model").
				Str("name", nameOf(info)).
				Int("messages", len(input.Messages))
			if um := lastUserContent(input.Messages); um != "" {
				ev = ev.Str("user", um)
			}
			ev.Msg("Model call started")

			// full context (system + history), trace level only
			for i, m := range input.Messages {
				if m == nil || strings.TrimSpace(m.Content) == "" {
					continue
				}
				logx.Ctx(ctx).Trace().Int("index", i).Str("role", string(m.Role)).Msg(strings.TrimSpace(m.Content))
			}
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("component", "model").Str("name", nameOf(info))
			if output != nil && output.Message != nil {
				ev = ev.Int("tool_calls", len(output.Message.ToolCalls))
				if content := strings.TrimSpace(output.Message.Content); content != "" {
					ev = ev.Str("assistant", content)
				}
			}
			if output != nil && output.TokenUsage != nil {
				trace.SpanFromContext(ctx).SetAttributes(
					attribute.Int("llm.prompt_tokens", output.TokenUsage.PromptTokens),
					attribute.Int("llm.completion_tokens", output.TokenUsage.CompletionTokens),
				)
			}
			ev.Msg("Model call finished")
			endSpan(ctx, nil)
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Ctx(ctx).Error().Err(err).Str("component", "model").Str("name", nameOf(info)).Msg("Model call failed")
			endSpan(ctx, err)
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			if c := strings.TrimSpace(m.Content); c != "" {
				return c
			}
			for _, part := range m.MultiContent {
				if part.Type == schema.ChatMessagePartTypeText {
					return strings.TrimSpace(part.Text)
				}
			}
		}
	}
	return ""
}
