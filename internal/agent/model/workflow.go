package model

import (
	"encoding/json"
	"fmt"
)

// WorkflowInput is the payload accepted by the orchestrator.
type WorkflowInput struct {
	InputAsText string `json:"input_as_text"`
}

// Terminal states of a workflow run.
const (
	StateBlocked   = "blocked"
	StateUnmatched = "unmatched"
	StateDispatch  = "dispatch"
)

// ResponderOutput is the normalized answer of a dispatched responder.
type ResponderOutput struct {
	OutputText     string         `json:"output_text"`
	Classification Label          `json:"classification"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// WorkflowResult holds exactly one of the three result shapes a run can
// produce. Build it with BlockedResult, UnmatchedResult or RespondedResult.
type WorkflowResult struct {
	Report         *GuardrailReport
	Classification *ClassificationResult
	Response       *ResponderOutput
}

func BlockedResult(r GuardrailReport) *WorkflowResult {
	return &WorkflowResult{Report: &r}
}

func UnmatchedResult(c ClassificationResult) *WorkflowResult {
	return &WorkflowResult{Classification: &c}
}

func RespondedResult(o ResponderOutput) *WorkflowResult {
	return &WorkflowResult{Response: &o}
}

// State names the terminal state that produced the result.
func (r *WorkflowResult) State() string {
	switch {
	case r == nil:
		return ""
	case r.Report != nil:
		return StateBlocked
	case r.Response != nil:
		return StateDispatch
	case r.Classification != nil:
		return StateUnmatched
	}
	return ""
}

// OutputText returns the responder text and whether the result carries one.
func (r *WorkflowResult) OutputText() (string, bool) {
	if r == nil || r.Response == nil {
		return "", false
	}
	return r.Response.OutputText, true
}

// MarshalJSON encodes whichever variant is set, flat.
func (r *WorkflowResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Report != nil:
		return json.Marshal(r.Report)
	case r.Response != nil:
		return json.Marshal(r.Response)
	case r.Classification != nil:
		return json.Marshal(r.Classification)
	}
	return nil, fmt.Errorf("empty workflow result")
}

// AppState stores per-run state for the workflow graph.
// It is registered as graph local state via compose.WithGenLocalState and is
// only touched from node bodies through compose.ProcessState, so a run never
// shares it with another.
type AppState struct {
	RunID      string
	WorkflowID string
	History    *ConversationHistory

	Guardrails []GuardrailResult
	SafeText   string

	Classification *ClassificationResult
	Result         *WorkflowResult

	// Failure is the first fatal error a node reported, kept unwrapped.
	Failure error

	// Accumulated total LLM cost (USD) across model invocations for this run
	TotalCostUSD float64
}
