package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/graph/tools"
)

//go:embed template/classifier_prompt.txt
var classifierPrompt string

//go:embed template/responder_prompt.txt
var responderPrompt string

// RenderClassifierInstructions appends the closed label set and the JSON
// output contract to the classifier's base instructions.
func RenderClassifierInstructions(ctx context.Context, instructions string, labels []string) (string, error) {
	if len(labels) == 0 {
		return "", fmt.Errorf("classifier prompt: no labels")
	}
	return render(ctx, classifierPrompt, map[string]any{
		"Instructions": strings.TrimSpace(instructions),
		"Labels":       labels,
	})
}

// RenderResponderSystem renders a capability's system prompt. The tool
// section is only emitted when tools are bound.
func RenderResponderSystem(ctx context.Context, instructions string, toolNames []string) (string, error) {
	return render(ctx, responderPrompt, map[string]any{
		"Instructions": strings.TrimSpace(instructions),
		"Tools":        toolNames,
		"SearchTool":   tools.ToolSearchCatalogue,
		"DetailsTool":  tools.ToolGetProductDetails,
	})
}

// render formats tpl through the Eino prompt component so prompt callbacks fire.
func render(ctx context.Context, tpl string, vars map[string]any) (string, error) {
	t := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(tpl))
	msgs, err := t.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt render: empty result")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}
