package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderClassifierInstructions(t *testing.T) {
	out, err := RenderClassifierInstructions(context.Background(), "Classify the request.", []string{"Catalogue_Agent", "Product_Agent"})
	require.NoError(t, err)
	assert.Contains(t, out, "Classify the request.")
	assert.Contains(t, out, "- Catalogue_Agent\n- Product_Agent")
	assert.Contains(t, out, `{"classification": "<label>"}`)

	_, err = RenderClassifierInstructions(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestRenderResponderSystem(t *testing.T) {
	plain, err := RenderResponderSystem(context.Background(), "  Answer politely. {not a template}  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Answer politely. {not a template}", plain)

	withTools, err := RenderResponderSystem(context.Background(), "Answer.", []string{"search_catalogue", "get_product_details"})
	require.NoError(t, err)
	assert.Contains(t, withTools, "You can call these tools: search_catalogue, get_product_details.")
	assert.Contains(t, withTools, "Use search_catalogue to find products")
}
