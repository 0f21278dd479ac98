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

type GetProductDetailsInput struct {
	ProductID string `json:"product_id"`
}

func createGetProductDetailsTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetProductDetails,
			Desc: "Get technical specifications, grades, standards and typical applications of one catalogue product. Use this tool when the customer needs product details or comparisons.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_id": {
					Type:     "string",
					Desc:     "Product ID from search_catalogue results (e.g., rx-pipe-001). Must be an exact ID.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *GetProductDetailsInput) (*model.ProductDetails, error) {
			return GetProductDetails(in.ProductID)
		},
	)
}

// GetProductDetails returns the detailed entry for id. Products without a
// detailed entry are described from their catalogue row.
func GetProductDetails(id string) (*model.ProductDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("product_id is required")
	}
	if d, ok := CatalogueDetails[id]; ok {
		return &d, nil
	}
	for _, p := range CatalogueProducts {
		if p.ID == id {
			return &model.ProductDetails{
				Product: p,
				Specifications: map[string]string{
					"category": p.Category,
					"in_stock": fmt.Sprintf("%v", p.InStock),
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("product not found: %s", id)
}
