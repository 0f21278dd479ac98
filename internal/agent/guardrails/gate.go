package guardrails

import (
	"context"
	"fmt"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

// Gate binds an Evaluator to the process-wide guardrail configuration.
type Gate struct {
	evaluator Evaluator
	config    Config
	shared    SharedContext
	strict    bool
}

// NewGate returns a gate. A nil evaluator is rejected.
func NewGate(evaluator Evaluator, cfg Config, shared SharedContext, strict bool) (*Gate, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("guardrail evaluator is nil")
	}
	return &Gate{evaluator: evaluator, config: cfg, shared: shared, strict: strict}, nil
}

// Verdict is the outcome of one gate evaluation.
type Verdict struct {
	Results  []model.GuardrailResult
	Blocked  bool
	SafeText string
}

// Evaluate runs the configured checks against text.
func (g *Gate) Evaluate(ctx context.Context, text string) (*Verdict, error) {
	results, err := g.evaluator.Evaluate(ctx, text, g.config, g.shared, g.strict)
	if err != nil {
		return nil, fmt.Errorf("evaluate guardrails: %w", err)
	}
	return &Verdict{
		Results:  results,
		Blocked:  HasTripwire(results),
		SafeText: SafeText(results, text),
	}, nil
}
