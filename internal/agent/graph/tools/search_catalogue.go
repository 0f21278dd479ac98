package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

const (
	defaultMaxResults = 10
	maxMaxResults     = 20
)

// ===================================
// Search Catalogue Tool
// ===================================

type SearchCatalogueInput struct {
	Query      string `json:"query"`
	Category   string `json:"category,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type SearchCatalogueOutput struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
}

func createSearchCatalogueTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchCatalogue,
			Desc: "Search the product catalogue. Matches product names, categories, grades, standards and descriptions. Returns product ID, name, category and availability. Use this tool whenever the customer mentions a product, material, grade or standard.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Search keywords. Examples: steel pipe, SS 316, fasteners, wire mesh, ASTM A106, flange.",
					Required: true,
				},
				"category": {
					Type: "string",
					Desc: "Optional category filter. Available categories: " + strings.Join(Categories(), ", "),
				},
				"max_results": {
					Type: "number",
					Desc: fmt.Sprintf("Maximum number of products to return (default: %d, max: %d)", defaultMaxResults, maxMaxResults),
				},
			}),
		},
		func(ctx context.Context, in *SearchCatalogueInput) (*SearchCatalogueOutput, error) {
			return SearchCatalogue(in)
		},
	)
}

// SearchCatalogue matches every query term against a product's searchable
// text. A product matches when all terms are found.
func SearchCatalogue(in *SearchCatalogueInput) (*SearchCatalogueOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit := in.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	if limit > maxMaxResults {
		limit = maxMaxResults
	}

	terms := strings.Fields(strings.ToLower(in.Query))
	matched := []model.Product{}
	for _, p := range CatalogueProducts {
		if in.Category != "" && !strings.EqualFold(p.Category, in.Category) {
			continue
		}
		haystack := searchableText(p)
		hit := true
		for _, t := range terms {
			if !strings.Contains(haystack, t) {
				hit = false
				break
			}
		}
		if hit {
			matched = append(matched, p)
		}
	}

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return &SearchCatalogueOutput{Products: matched, Total: len(matched)}, nil
}

func searchableText(p model.Product) string {
	parts := []string{p.Name, p.Category, p.Description}
	parts = append(parts, p.Grades...)
	parts = append(parts, p.Standards...)
	return strings.ToLower(strings.Join(parts, " "))
}
