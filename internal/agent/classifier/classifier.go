// Package classifier assigns a conversation to exactly one label of a closed
// set with a single completion call.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/completion"
	"github.com/catalogue-assistant/server/internal/agent/graph/parsers"
	"github.com/catalogue-assistant/server/internal/agent/graph/prompts"
	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// Classifier runs the classifier capability and parses its label.
type Classifier struct {
	runner completion.Runner
	desc   model.ResponderDescriptor
	labels model.LabelSet
}

// New returns a classifier for labels. The label list and the JSON output
// contract are rendered into the capability's instructions once, here.
func New(ctx context.Context, runner completion.Runner, desc model.ResponderDescriptor, labels model.LabelSet) (*Classifier, error) {
	if runner == nil {
		return nil, fmt.Errorf("classifier runner is nil")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("classifier has no labels")
	}
	instructions, err := prompts.RenderClassifierInstructions(ctx, desc.Instructions, labels.Strings())
	if err != nil {
		return nil, err
	}
	desc.Instructions = instructions
	desc.Tools = nil
	return &Classifier{runner: runner, desc: desc, labels: labels}, nil
}

// Labels returns the closed label set.
func (c *Classifier) Labels() model.LabelSet {
	return c.labels
}

// Classify labels history. The returned completion carries the items the
// classifier produced and is non-nil whenever the model was reached, also
// when classification fails, so callers can record them.
func (c *Classifier) Classify(ctx context.Context, history []*schema.Message) (*model.ClassificationResult, *completion.Completion, error) {
	comp, err := c.runner.Run(ctx, c.desc, history)
	if err != nil {
		return nil, comp, fmt.Errorf("run classifier: %w", err)
	}
	if comp == nil || comp.FinalOutput == nil {
		return nil, comp, errx.ErrClassifierOutputMissing
	}

	parsed, err := parsers.ParseClassification(*comp.FinalOutput, c.labels)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("Classifier output could not be parsed")
		return nil, comp, fmt.Errorf("%w: %v", errx.ErrClassifierOutputMissing, err)
	}

	raw, err := json.Marshal(parsed)
	if err != nil {
		return nil, comp, fmt.Errorf("encode classification: %w", err)
	}

	logx.Ctx(ctx).Debug().Str("label", string(parsed.Classification)).Msg("Input classified")
	return &model.ClassificationResult{RawText: string(raw), Parsed: *parsed}, comp, nil
}
