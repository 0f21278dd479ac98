package observers

import (
	"context"
	"errors"
	"io"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel/trace"

	logx "github.com/catalogue-assistant/server/pkg/logger"
)

func newToolHandler(tracer trace.Tracer) *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ctx = startSpan(ctx, tracer, "tool", info)
			ev := logx.Ctx(ctx).Debug().Str("component", "tool").Str("tool_name", nameOf(info))
			if input != nil {
				ev = ev.Str("arguments", input.ArgumentsInJSON)
			}
			ev.Msg("Tool started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("component", "tool").Str("tool_name", nameOf(info))
			if output != nil {
				ev = ev.Int("response_len", len(output.Response))
			}
			ev.Msg("Tool finished")
			endSpan(ctx, nil)
			return ctx
		},
		OnEndWithStreamOutput: func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*tool.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()
				var streamErr error
				chunks := 0
				for {
					_, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						streamErr = err
						break
					}
					chunks++
				}
				logx.Ctx(ctx).Debug().Str("tool_name", nameOf(info)).Int("chunks", chunks).Msg("Tool stream finished")
				endSpan(ctx, streamErr)
			}()
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Ctx(ctx).Warn().Err(err).Str("component", "tool").Str("tool_name", nameOf(info)).Msg("Tool execution failed")
			endSpan(ctx, err)
			return ctx
		},
	}
}
