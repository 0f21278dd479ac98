// Package completion runs one capability (classifier or responder) against a
// conversation: render instructions, call the chat model, execute requested
// tools and loop until the model answers without tool calls.
package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/graph/prompts"
	"github.com/catalogue-assistant/server/internal/agent/graph/tools"
	"github.com/catalogue-assistant/server/internal/agent/llm"
	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// Runner executes a capability against a conversation.
type Runner interface {
	Run(ctx context.Context, desc model.ResponderDescriptor, history []*schema.Message) (*Completion, error)
}

// Completion is what one capability run produced.
type Completion struct {
	// FinalOutput is the text of the last assistant message, nil when empty.
	FinalOutput *string
	// NewItems holds every assistant and tool message produced, in order.
	NewItems []*schema.Message
	// Usage lists the cost of every model call that reported usage.
	Usage        []model.UsageCost
	TotalCostUSD float64
}

// Config tunes the completion service.
type Config struct {
	DefaultModel string
	MaxToolCalls int
}

// Service is the default Runner backed by an llm.Provider.
type Service struct {
	llm          llm.Provider
	tools        *tools.Registry
	defaultModel string
	maxToolCalls int
}

// NewService validates collaborators and returns a Service.
func NewService(provider llm.Provider, registry *tools.Registry, cfg Config) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is nil")
	}
	if registry == nil {
		registry = tools.NewRegistryWith()
	}
	return &Service{
		llm:          provider,
		tools:        registry,
		defaultModel: cfg.DefaultModel,
		maxToolCalls: normalizeMaxToolCalls(cfg.MaxToolCalls),
	}, nil
}

// Run executes desc against history. history is read, never modified. On
// error the returned Completion, when non-nil, holds the items produced
// before the failure.
func (s *Service) Run(ctx context.Context, desc model.ResponderDescriptor, history []*schema.Message) (*Completion, error) {
	system, err := prompts.RenderResponderSystem(ctx, desc.Instructions, desc.Tools)
	if err != nil {
		return nil, fmt.Errorf("render %s instructions: %w", desc.Name, err)
	}

	bound, err := s.tools.Select(desc.Tools)
	if err != nil {
		return nil, fmt.Errorf("capability %s: %w", desc.Name, err)
	}
	toolInfos, err := tools.GetToolInfos(ctx, bound)
	if err != nil {
		return nil, err
	}
	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                bound,
		ExecuteSequentially:  true,
		UnknownToolsHandler:  tools.UnknownTool,
		ToolArgumentsHandler: tools.SanitizeArguments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tools node: %w", err)
	}

	params := desc.Model
	params.Model = llm.ResolveModelName(params, s.defaultModel)
	cm, err := s.llm.ChatModel(ctx, params, toolInfos)
	if err != nil {
		return nil, errx.WrapModel(err)
	}

	st := &loopState{}
	out := &Completion{}
	for {
		input := make([]*schema.Message, 0, len(history)+len(out.NewItems)+2)
		input = append(input, schema.SystemMessage(system))
		input = append(input, history...)
		input = append(input, out.NewItems...)
		if checkAndMarkToolLimit(st, s.maxToolCalls) {
			logx.Ctx(ctx).Warn().
				Str("capability", desc.Name).
				Int("tool_call_count", st.toolCallCount).
				Int("max_tool_calls", s.maxToolCalls).
				Msg("Tool call limit reached - asking the model to wrap up")
		}
		if st.limitReached {
			input = append(input, wrapUpNotice(s.maxToolCalls))
		}

		modelCtx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
			Name:      desc.Name,
			Type:      params.Model,
			Component: components.ComponentOfChatModel,
		})
		msg, err := cm.Generate(modelCtx, input)
		if err != nil {
			return out, errx.WrapModel(err)
		}
		if msg == nil {
			break
		}

		if cost := model.CostOf(params.Model, msg); cost != nil {
			out.Usage = append(out.Usage, *cost)
			out.TotalCostUSD += cost.TotalCost
			logx.Ctx(ctx).Debug().
				Str("capability", desc.Name).
				Str("model", params.Model).
				Int("prompt_tokens", cost.PromptTokens).
				Int("completion_tokens", cost.CompletionTokens).
				Float64("total_cost_usd", cost.TotalCost).
				Msg("LLM usage")
		}

		normalizeToolCallIDs(st, msg)
		out.NewItems = append(out.NewItems, msg)

		if len(msg.ToolCalls) == 0 || st.limitReached {
			break
		}

		logx.Ctx(ctx).Debug().Str("capability", desc.Name).Int("tool_count", len(msg.ToolCalls)).Msg("Calling tools")
		results, err := toolsNode.Invoke(ctx, msg)
		if err != nil {
			return out, fmt.Errorf("execute tools for %s: %w", desc.Name, err)
		}
		fillToolCallIDs(msg, results)
		out.NewItems = append(out.NewItems, results...)
		st.toolCallCount++
	}

	out.FinalOutput = finalOutput(out.NewItems)
	return out, nil
}

// finalOutput returns the trimmed text of the last assistant message.
func finalOutput(items []*schema.Message) *string {
	for i := len(items) - 1; i >= 0; i-- {
		m := items[i]
		if m == nil || m.Role != schema.Assistant {
			continue
		}
		text := strings.TrimSpace(model.TextOf(m))
		if text == "" {
			return nil
		}
		return &text
	}
	return nil
}

var _ Runner = (*Service)(nil)
