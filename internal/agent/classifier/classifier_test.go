package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogue-assistant/server/internal/agent/completion/completiontest"
	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
)

var labels = model.LabelSet{"Catalogue_Agent", "Product_Agent"}

func newClassifier(t *testing.T, runner *completiontest.Runner) *Classifier {
	t.Helper()
	c, err := New(context.Background(), runner, model.ResponderDescriptor{Name: "Classifier", Instructions: "Route the request.", Tools: []string{"search_catalogue"}}, labels)
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		label model.Label
	}{
		{name: "exact", out: `{"classification":"Catalogue_Agent"}`, label: "Catalogue_Agent"},
		{name: "fenced and case folded", out: "```json\n{\"classification\": \"product_agent\"}\n```", label: "Product_Agent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := completiontest.NewRunner().Answer("Classifier", tt.out)
			c := newClassifier(t, runner)

			res, comp, err := c.Classify(context.Background(), []*schema.Message{model.UserInputMessage("hi")})
			require.NoError(t, err)
			assert.Equal(t, tt.label, res.Label())
			assert.JSONEq(t, `{"classification":"`+string(tt.label)+`"}`, res.RawText)
			assert.Len(t, comp.NewItems, 1)
		})
	}
}

func TestNew_RendersLabelsAndDropsTools(t *testing.T) {
	runner := completiontest.NewRunner().Answer("Classifier", `{"classification":"Product_Agent"}`)
	c := newClassifier(t, runner)

	_, _, err := c.Classify(context.Background(), nil)
	require.NoError(t, err)

	desc := runner.Descriptor("Classifier")
	assert.Contains(t, desc.Instructions, "Route the request.")
	assert.Contains(t, desc.Instructions, "- Catalogue_Agent")
	assert.Empty(t, desc.Tools)
	assert.Equal(t, labels, c.Labels())
}

func TestClassify_OutputMissing(t *testing.T) {
	reasoning := schema.AssistantMessage("thinking", nil)
	tests := []struct {
		name   string
		runner *completiontest.Runner
		items  int
	}{
		{name: "no final output", runner: completiontest.NewRunner().NoOutput("Classifier", reasoning), items: 1},
		{name: "not json", runner: completiontest.NewRunner().Answer("Classifier", "Catalogue_Agent"), items: 1},
		{name: "label outside enum", runner: completiontest.NewRunner().Answer("Classifier", `{"classification":"Sales_Agent"}`), items: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClassifier(t, tt.runner)
			res, comp, err := c.Classify(context.Background(), nil)
			assert.ErrorIs(t, err, errx.ErrClassifierOutputMissing)
			assert.Nil(t, res)
			require.NotNil(t, comp)
			assert.Len(t, comp.NewItems, tt.items)
		})
	}
}

func TestClassify_RunnerError(t *testing.T) {
	boom := errors.New("boom")
	runner := completiontest.NewRunner().Script("Classifier", completiontest.Result{Err: boom})
	c := newClassifier(t, runner)

	_, _, err := c.Classify(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errx.ErrClassifierOutputMissing)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), nil, model.ResponderDescriptor{}, labels)
	assert.Error(t, err)
	_, err = New(context.Background(), completiontest.NewRunner(), model.ResponderDescriptor{}, nil)
	assert.Error(t, err)
}
