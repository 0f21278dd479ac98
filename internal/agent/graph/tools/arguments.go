package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// SanitizeArguments normalizes model-produced tool arguments before the
// tool decodes them. It never fails: arguments it cannot parse are passed
// through unchanged.
func SanitizeArguments(ctx context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments, nil
	}

	switch name {
	case ToolSearchCatalogue:
		// query: string (required)
		if v, ok := m["query"]; ok {
			m["query"] = trimmedString(v)
		}
		// category: string (optional)
		if v, ok := m["category"]; ok {
			if s, isStr := v.(string); isStr {
				m["category"] = strings.ToLower(strings.TrimSpace(s))
			} else {
				delete(m, "category")
			}
		}
		// max_results: number (optional)
		if v, ok := m["max_results"]; ok {
			switch vv := v.(type) {
			case float64:
				m["max_results"] = clampInt(int(vv), 1, maxMaxResults)
			case string:
				if n, err := strconv.Atoi(strings.TrimSpace(vv)); err == nil {
					m["max_results"] = clampInt(n, 1, maxMaxResults)
				} else {
					delete(m, "max_results")
				}
			default:
				delete(m, "max_results")
			}
		}
	case ToolGetProductDetails:
		if v, ok := m["product_id"]; ok {
			m["product_id"] = trimmedString(v)
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

// UnknownTool answers hallucinated or malformed tool calls with a compact
// result the model can recover from.
func UnknownTool(ctx context.Context, name, input string) (string, error) {
	logx.Ctx(ctx).Warn().
		Str("tool_name", name).
		Str("arguments", input).
		Msg("Unknown or invalid tool call; returning fallback result")
	return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
}

func trimmedString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// clampInt returns v limited to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
