package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// Tool names exposed to responders.
const (
	ToolSearchCatalogue   = "search_catalogue"
	ToolGetProductDetails = "get_product_details"
)

// Registry holds every tool a responder may bind by name.
type Registry struct {
	tools map[string]tool.BaseTool
}

// NewRegistry returns a registry with the catalogue tools.
func NewRegistry() *Registry {
	return NewRegistryWith(GetCatalogueTools()...)
}

// NewRegistryWith returns a registry holding exactly ts. Tool names are read
// once here; a tool whose Info call fails is skipped.
func NewRegistryWith(ts ...tool.BaseTool) *Registry {
	r := &Registry{tools: map[string]tool.BaseTool{}}
	for _, t := range ts {
		info, err := t.Info(context.Background())
		if err != nil || info == nil {
			continue
		}
		r.tools[info.Name] = t
	}
	return r
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Select returns the tools named in names, in that order. Invokable tools
// are wrapped so a tool error reaches the model as a result instead of
// aborting the run.
func (r *Registry) Select(names []string) ([]tool.BaseTool, error) {
	out := make([]tool.BaseTool, 0, len(names))
	for _, n := range names {
		t, ok := r.tools[n]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", n)
		}
		if it, isInvokable := t.(tool.InvokableTool); isInvokable {
			t = errorAsResult{InvokableTool: it, name: n}
		}
		out = append(out, t)
	}
	return out, nil
}

type errorAsResult struct {
	tool.InvokableTool
	name string
}

func (t errorAsResult) InvokableRun(ctx context.Context, arguments string, opts ...tool.Option) (string, error) {
	out, err := t.InvokableTool.InvokableRun(ctx, arguments, opts...)
	if err == nil {
		return out, nil
	}
	logx.Ctx(ctx).Warn().Err(err).Str("tool_name", t.name).Msg("Tool returned an error; passing it to the model")
	b, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return "", err
	}
	return string(b), nil
}

// GetCatalogueTools returns the product catalogue tools.
func GetCatalogueTools() []tool.BaseTool {
	return []tool.BaseTool{
		createSearchCatalogueTool(),
		createGetProductDetailsTool(),
	}
}

// GetToolInfos collects the schema of every tool for model binding.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
