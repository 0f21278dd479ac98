package guardrails

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogue-assistant/server/internal/agent/llm"
	"github.com/catalogue-assistant/server/internal/agent/model"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// Config lists the checks to run, in order.
type Config struct {
	Guardrails []CheckConfig `koanf:"guardrails" json:"guardrails"`
}

// CheckConfig names one check and its settings.
type CheckConfig struct {
	Name   string        `koanf:"name" json:"name"`
	Config CheckSettings `koanf:"config" json:"config"`
}

// CheckSettings is the union of settings understood by the built-in checks.
type CheckSettings struct {
	Model               string   `koanf:"model" json:"model,omitempty"`
	ConfidenceThreshold float64  `koanf:"confidence_threshold" json:"confidence_threshold,omitempty"`
	Categories          []string `koanf:"categories" json:"categories,omitempty"`
	Entities            []string `koanf:"entities" json:"entities,omitempty"`
	Block               bool     `koanf:"block" json:"block,omitempty"`
	KnowledgeSource     string   `koanf:"knowledge_source" json:"knowledge_source,omitempty"`
}

// SharedContext carries collaborators shared by every check of an evaluation.
type SharedContext struct {
	LLM llm.Provider
	// DefaultModel is used by LLM checks that do not name a model.
	DefaultModel string
}

// Evaluator runs a guardrail configuration against raw text. Per-check
// failures are reported inside the results; only cancellation of ctx
// aborts an evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, text string, cfg Config, shared SharedContext, strict bool) ([]model.GuardrailResult, error)
}

// Outcome is what a check reports back to the service.
type Outcome struct {
	Tripwire bool
	Info     map[string]any
}

// Check is a single named guardrail.
type Check interface {
	Name() string
	Run(ctx context.Context, text string, settings CheckSettings, shared SharedContext) (Outcome, error)
}

// Service evaluates configured checks sequentially.
type Service struct {
	checks map[string]Check
}

// NewService returns a service knowing the built-in checks plus extra.
func NewService(extra ...Check) *Service {
	s := &Service{checks: map[string]Check{}}
	for _, c := range append(builtinChecks(), extra...) {
		s.checks[c.Name()] = c
	}
	return s
}

// Validate reports configured checks the service does not know.
func (s *Service) Validate(cfg Config) error {
	for i, c := range cfg.Guardrails {
		if _, ok := s.checks[c.Name]; !ok {
			return fmt.Errorf("guardrail %d: unknown check %q", i, c.Name)
		}
	}
	return nil
}

// Evaluate runs every configured check against text, in order. With strict
// set, a check that fails to execute also trips its tripwire so the input
// cannot pass uncertified.
func (s *Service) Evaluate(ctx context.Context, text string, cfg Config, shared SharedContext, strict bool) ([]model.GuardrailResult, error) {
	results := make([]model.GuardrailResult, 0, len(cfg.Guardrails))
	for _, cc := range cfg.Guardrails {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		res := s.run(ctx, cc, text, shared, strict)
		guardrailDuration.WithLabelValues(cc.Name).Observe(time.Since(start).Seconds())
		if res.TripwireTriggered {
			guardrailTrips.WithLabelValues(cc.Name).Inc()
		}

		logx.Ctx(ctx).Debug().
			Str("guardrail", cc.Name).
			Bool("tripwire", res.TripwireTriggered).
			Bool("execution_failed", res.ExecutionFailed).
			Dur("took", time.Since(start)).
			Msg("Guardrail evaluated")
		results = append(results, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) run(ctx context.Context, cc CheckConfig, text string, shared SharedContext, strict bool) (res model.GuardrailResult) {
	res = model.GuardrailResult{Name: cc.Name, Info: map[string]any{InfoGuardrailName: cc.Name}}

	fail := func(err error) {
		res.ExecutionFailed = true
		res.TripwireTriggered = strict
		res.Info[InfoError] = err.Error()
		logx.Ctx(ctx).Warn().Err(err).Str("guardrail", cc.Name).Msg("Guardrail execution failed")
	}

	// panic safety
	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("guardrail panic: %v", r))
		}
	}()

	check, ok := s.checks[cc.Name]
	if !ok {
		fail(fmt.Errorf("unknown guardrail %q", cc.Name))
		return res
	}

	out, err := check.Run(ctx, text, cc.Config, shared)
	if err != nil {
		fail(err)
		return res
	}
	for k, v := range out.Info {
		res.Info[k] = v
	}
	res.TripwireTriggered = out.Tripwire
	return res
}

var _ Evaluator = (*Service)(nil)
